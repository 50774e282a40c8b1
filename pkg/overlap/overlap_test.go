package overlap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/blendgen/pkg/catalog"
)

func entry(id int64, dx, dy, hlr float64) catalog.Entry {
	r := catalog.Record{ID: id, HalfLightRadius: hlr, Mags: map[string]float64{"i": 22.5}}
	return catalog.NewEntry(r, dx, dy)
}

// testBlend has a close pair, a third object linked only to the second,
// and an isolated fourth.
func testBlend() catalog.Blend {
	return catalog.Blend{
		entry(1, 0, 0, 0.5),
		entry(2, 0.8, 0, 0.5),
		entry(3, 1.7, 0, 0.5),
		entry(4, -5, 5, 0.3),
	}
}

func TestBuild(t *testing.T) {
	g := Build(testBlend(), Options{Band: "i"})

	if len(g.Nodes) != 4 {
		t.Fatalf("got %d nodes, want 4", len(g.Nodes))
	}
	if !g.Nodes[0].HasMag || g.Nodes[0].Mag != 22.5 {
		t.Errorf("node 0 mag = %v (%v), want 22.5", g.Nodes[0].Mag, g.Nodes[0].HasMag)
	}

	var pairs [][2]int
	for _, e := range g.Edges {
		pairs = append(pairs, [2]int{e.From, e.To})
	}
	want := [][2]int{{0, 1}, {1, 2}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
	if g.Edges[0].Separation != 0.8 {
		t.Errorf("separation = %v, want 0.8", g.Edges[0].Separation)
	}
}

func TestBuildLinking(t *testing.T) {
	g := Build(testBlend(), Options{Linking: 0.5})
	if len(g.Edges) != 0 {
		t.Errorf("linking 0.5 should leave no edges, got %v", g.Edges)
	}
	if g.Nodes[0].HasMag {
		t.Error("no band should leave HasMag false")
	}
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name  string
		blend catalog.Blend
		want  [][]int
	}{
		{"chain and singleton", testBlend(), [][]int{{0, 1, 2}, {3}}},
		{"single object", catalog.Blend{entry(1, 0, 0, 1)}, [][]int{{0}}},
		{"empty", nil, nil},
		{"same position twice", catalog.Blend{entry(5, 0, 0, 0.2), entry(5, 0, 0, 0.2)}, [][]int{{0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.blend, Options{}).Components()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Components mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToDOT(t *testing.T) {
	dot := Build(testBlend(), Options{Band: "i"}).ToDOT()

	for _, want := range []string{"graph G {", `n0 [label="1\n22.50"]`, "n0 -- n1", "n1 -- n2"} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q", want)
		}
	}
	if strings.Contains(dot, "n3 --") || strings.Contains(dot, "-- n3") {
		t.Error("isolated object should have no edges")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	if !strings.HasPrefix(got, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 44.00" width="62" height="44">`) {
		t.Errorf("normalizeViewBox() = %s", got)
	}

	plain := []byte("<svg><g/></svg>")
	if !bytes.Equal(normalizeViewBox(plain), plain) {
		t.Error("svg without viewBox should be unchanged")
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz runtime start-up is slow")
	}
	svg, err := RenderSVG(Build(testBlend(), Options{}).ToDOT())
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("RenderSVG output is not SVG")
	}
}
