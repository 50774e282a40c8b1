// Package report summarizes the blends of a run as an interactive HTML page.
//
// A [Summary] accumulates blend catalogs batch by batch; [Summary.Render]
// writes one page with the blend multiplicity, the object offsets and the
// magnitude distribution in the cut band.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/blendgen/pkg/catalog"
)

// DefaultMagBins is the number of magnitude histogram bins.
const DefaultMagBins = 20

// Summary accumulates blend statistics. It is not safe for concurrent use.
type Summary struct {
	band      string
	maxNumber int

	blends       int
	multiplicity []int // index n-1 counts blends of n objects
	dx, dy       []float64
	mags         []float64
}

// NewSummary returns an empty summary for blends of at most maxNumber
// objects. band selects the magnitude column.
func NewSummary(band string, maxNumber int) *Summary {
	return &Summary{band: band, maxNumber: maxNumber, multiplicity: make([]int, max(maxNumber, 1))}
}

// Add records one batch of blends.
func (s *Summary) Add(blends []catalog.Blend) {
	for _, b := range blends {
		s.blends++
		if n := len(b); n >= 1 && n <= len(s.multiplicity) {
			s.multiplicity[n-1]++
		}
		for _, e := range b {
			s.dx = append(s.dx, e.DxSky())
			s.dy = append(s.dy, e.DySky())
			if m, ok := e.Mag(s.band); ok {
				s.mags = append(s.mags, m)
			}
		}
	}
}

// Blends returns the number of blends recorded.
func (s *Summary) Blends() int { return s.blends }

// Objects returns the number of objects recorded.
func (s *Summary) Objects() int { return len(s.dx) }

// Multiplicity returns how many blends had 1..maxNumber objects.
func (s *Summary) Multiplicity() []int { return slices.Clone(s.multiplicity) }

// MagHistogram bins the recorded magnitudes into bins equal-width bins
// spanning their range. It returns the bin edges (bins+1) and counts.
func (s *Summary) MagHistogram(bins int) (edges, counts []float64) {
	if len(s.mags) == 0 || bins < 1 {
		return nil, nil
	}
	x := slices.Clone(s.mags)
	slices.Sort(x)
	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + 1
	}
	// stat.Histogram needs every value strictly below the last edge.
	hi = math.Nextafter(hi, math.Inf(1))

	edges = floats.Span(make([]float64, bins+1), lo, hi)
	counts = stat.Histogram(nil, edges, x, nil)
	return edges, counts
}

// Render writes the summary page to w.
func (s *Summary) Render(w io.Writer, title string) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(s.multiplicityChart(title), s.offsetChart(), s.magChart())
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (s *Summary) multiplicityChart(title string) *charts.Bar {
	x := make([]string, len(s.multiplicity))
	y := make([]opts.BarData, len(s.multiplicity))
	for i, c := range s.multiplicity {
		x[i] = strconv.Itoa(i + 1)
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("blends=%d objects=%d", s.blends, len(s.dx))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "objects per blend", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).
		AddSeries("blends", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func (s *Summary) offsetChart() *charts.Scatter {
	data := make([]opts.ScatterData, len(s.dx))
	pad := 0.0
	for i := range s.dx {
		data[i] = opts.ScatterData{Value: []interface{}{s.dx[i], s.dy[i]}}
		pad = max(pad, math.Abs(s.dx[i]), math.Abs(s.dy[i]))
	}
	pad = math.Ceil(pad*10) / 10

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "600px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Object offsets", Subtitle: "arcseconds from the blend center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "dx (\")", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "dy (\")", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("objects", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func (s *Summary) magChart() *charts.Bar {
	edges, counts := s.MagHistogram(DefaultMagBins)
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = strconv.FormatFloat((edges[i]+edges[i+1])/2, 'f', 2, 64)
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Magnitudes", Subtitle: "band " + s.band}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "AB mag", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries("objects", y)
	return bar
}
