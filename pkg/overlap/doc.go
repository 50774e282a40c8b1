// Package overlap links the objects of a blend into an overlap graph.
//
// # Overview
//
// Two objects overlap when their separation is smaller than Linking times
// the sum of their half-light radii. Connected components of the graph are
// friends-of-friends groups: a blend whose objects form one group is fully
// blended, a blend of singletons is not blended at all.
//
// # Usage
//
//	g := overlap.Build(blend, overlap.Options{Band: "i"})
//	groups := g.Components()
//	svg, err := overlap.RenderSVG(g.ToDOT())
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no system Graphviz install is needed.
package overlap
