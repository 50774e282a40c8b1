// Package preview renders quick-look PNGs of drawn batches: the band sum
// of each blend as a heat map with object centroids marked.
package preview

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/ndarray"
)

// DefaultSize is the side length of saved previews.
const DefaultSize = 5 * vg.Inch

// grid adapts a matrix to plotter.GridXYZ with column x and row y.
type grid struct{ m *mat.Dense }

func (g grid) Dims() (c, r int)   { r, c = g.m.Dims(); return c, r }
func (g grid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// bandSum adds the channels of a [H, W, bands] image.
func bandSum(img *ndarray.Array) *mat.Dense {
	h, w := img.Dim(0), img.Dim(1)
	sum := mat.NewDense(h, w, nil)
	for c := range img.Dim(2) {
		sum.Add(sum, img.Plane(c))
	}
	return sum
}

// Blend plots blend i of b.
func Blend(b *draw.Batch, i int) (*plot.Plot, error) {
	if i < 0 || i >= len(b.Catalogs) {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "blend %d out of range [0, %d)", i, len(b.Catalogs))
	}
	return heatmap(bandSum(b.BlendImages.Index(i)), b, i,
		fmt.Sprintf("batch %d blend %d (%d objects)", b.Index, i, len(b.Catalogs[i])))
}

// Isolated plots object k of blend i of b.
func Isolated(b *draw.Batch, i, k int) (*plot.Plot, error) {
	if i < 0 || i >= len(b.Catalogs) || k < 0 || k >= len(b.Catalogs[i]) {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "no object %d in blend %d", k, i)
	}
	e := b.Catalogs[i][k]
	return heatmap(bandSum(b.IsolatedImages.Index(i).Index(k)), b, i,
		fmt.Sprintf("blend %d object %d (id %d)", i, k, e.ID))
}

func heatmap(sum *mat.Dense, b *draw.Batch, i int, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x [pix]"
	p.Y.Label.Text = "y [pix]"

	hm := plotter.NewHeatMap(grid{sum}, palette.Heat(64, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	var pts plotter.XYs
	for _, e := range b.Catalogs[i] {
		if e.HasPixels {
			pts = append(pts, plotter.XY{X: e.DxPix, Y: e.DyPix})
		}
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("centroids: %w", err)
		}
		sc.GlyphStyle.Shape = vgdraw.CrossGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 0, G: 200, B: 255, A: 255}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
	}
	return p, nil
}

// SaveBatch writes blend_NNN.png for every blend of b into dir and returns
// the paths.
func SaveBatch(b *draw.Batch, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	paths := make([]string, 0, len(b.Catalogs))
	for i := range b.Catalogs {
		p, err := Blend(b, i)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("batch_%06d_blend_%03d.png", b.Index, i))
		if err := p.Save(DefaultSize, DefaultSize, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", filepath.Base(path), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
