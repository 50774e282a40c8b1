package overlap

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/blendgen/pkg/catalog"
)

// DefaultLinking scales the summed half-light radii into a linking length.
const DefaultLinking = 1.0

// Options configures graph construction.
type Options struct {
	// Linking scales the summed half-light radii. Zero uses DefaultLinking.
	Linking float64
	// Band selects the magnitude shown in node labels. Empty omits it.
	Band string
}

// Node is one blend entry.
type Node struct {
	ID  int64
	Mag float64
	// HasMag is false when the entry has no magnitude in the label band.
	HasMag bool
}

// Edge joins two overlapping entries by their position in the blend.
type Edge struct {
	From, To   int
	Separation float64 // arcseconds
}

// Graph is the overlap graph of one blend.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build links every pair of entries closer than the linking length.
func Build(b catalog.Blend, opts Options) *Graph {
	linking := opts.Linking
	if linking <= 0 {
		linking = DefaultLinking
	}
	g := &Graph{Nodes: make([]Node, len(b))}
	for i, e := range b {
		g.Nodes[i].ID = e.ID
		if opts.Band != "" {
			g.Nodes[i].Mag, g.Nodes[i].HasMag = e.Mag(opts.Band)
		}
	}
	for i := range b {
		for j := i + 1; j < len(b); j++ {
			sep := math.Hypot(b[i].DxSky()-b[j].DxSky(), b[i].DySky()-b[j].DySky())
			if sep < linking*(b[i].HalfLightRadius+b[j].HalfLightRadius) {
				g.Edges = append(g.Edges, Edge{From: i, To: j, Separation: sep})
			}
		}
	}
	return g
}

// Components returns the friends-of-friends groups as lists of blend
// positions, ordered by their first member.
func (g *Graph) Components() [][]int {
	parent := make([]int, len(g.Nodes))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for _, e := range g.Edges {
		a, b := find(e.From), find(e.To)
		if a != b {
			parent[max(a, b)] = min(a, b)
		}
	}

	index := map[int]int{}
	var groups [][]int
	for i := range g.Nodes {
		root := find(i)
		k, ok := index[root]
		if !ok {
			k = len(groups)
			index[root] = k
			groups = append(groups, nil)
		}
		groups[k] = append(groups[k], i)
	}
	return groups
}

// ToDOT converts the graph to Graphviz DOT. Nodes are named by blend
// position since catalog IDs may repeat within a blend.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for i, n := range g.Nodes {
		label := strconv.FormatInt(n.ID, 10)
		if n.HasMag {
			label += fmt.Sprintf("\\n%.2f", n.Mag)
		}
		fmt.Fprintf(&buf, "  n%d [label=\"%s\"];\n", i, label)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  n%d -- n%d [label=\"%.2f\\\"\"];\n", e.From, e.To, e.Separation)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg tag so the drawing scales from a
// zero origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
