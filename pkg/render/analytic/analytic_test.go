package analytic

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/render"
	"github.com/matzehuels/blendgen/pkg/survey"
)

func testCondition() *survey.Observation {
	return survey.NewObservation(0.2, survey.Filter{
		Band:          "i",
		ZeroPoint:     30,
		ExposureTime:  1000,
		SkyBrightness: 21,
		SeeingFWHM:    0.7,
	})
}

func entry(mag, dx, dy float64) catalog.Entry {
	return catalog.NewEntry(catalog.Record{
		ID:              1,
		Mags:            map[string]float64{"i": mag},
		HalfLightRadius: 0.4,
	}, dx, dy)
}

func argmax(m *mat.Dense) (int, int) {
	r, c := m.Dims()
	bi, bj, best := 0, 0, math.Inf(-1)
	for i := range r {
		for j := range c {
			if v := m.At(i, j); v > best {
				bi, bj, best = i, j, v
			}
		}
	}
	return bi, bj
}

func TestRenderConservesFlux(t *testing.T) {
	cond := testCondition()
	stamp, err := New(Options{}).Render(entry(22, 0, 0), "i", cond, 81)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := survey.Flux(cond, 22)
	if got := mat.Sum(stamp); math.Abs(got-want)/want > 0.01 {
		t.Errorf("sum = %v, want %v within 1%%", got, want)
	}
	if i, j := argmax(stamp); i != 40 || j != 40 {
		t.Errorf("peak at (%d, %d), want (40, 40)", i, j)
	}
}

func TestRenderOffset(t *testing.T) {
	stamp, err := New(Options{}).Render(entry(22, 0.4, -0.6), "i", testCondition(), 41)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// +2 pixels in x, -3 pixels in y from the center pixel 20.
	if i, j := argmax(stamp); i != 17 || j != 22 {
		t.Errorf("peak at (row %d, col %d), want (17, 22)", i, j)
	}
}

func TestRenderEllipticity(t *testing.T) {
	e := entry(22, 0, 0)
	e.Ellipticity = 0.6
	stamp, err := New(Options{}).Render(e, "i", testCondition(), 41)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if stamp.At(20, 24) <= stamp.At(24, 20) {
		t.Error("position angle 0 should elongate the profile along x")
	}
}

func TestRenderNotVisible(t *testing.T) {
	r := New(Options{})
	tests := []struct {
		name string
		e    catalog.Entry
	}{
		{"too faint", entry(45, 0, 0)},
		{"far outside", entry(20, 500, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp, err := r.Render(tt.e, "i", testCondition(), 41)
			if !errors.Is(err, render.ErrNotVisible) {
				t.Errorf("error = %v, want ErrNotVisible", err)
			}
			if stamp != nil {
				t.Error("stamp should be nil when not visible")
			}
		})
	}
}

func TestRenderFatalErrors(t *testing.T) {
	r := New(Options{})

	if _, err := r.Render(entry(22, 0, 0), "g", testCondition(), 41); !bgerrors.Is(err, bgerrors.ErrCodeInvalidCatalog) {
		t.Errorf("missing band error = %v, want %s", err, bgerrors.ErrCodeInvalidCatalog)
	}

	bad := entry(22, 0, 0)
	bad.Ellipticity = 1
	_, err := r.Render(bad, "i", testCondition(), 41)
	if err == nil || errors.Is(err, render.ErrNotVisible) {
		t.Errorf("ellipticity 1 error = %v, want a fatal error", err)
	}
}

func TestRenderFreshStamps(t *testing.T) {
	r := New(Options{})
	a, _ := r.Render(entry(22, 0, 0), "i", testCondition(), 21)
	b, _ := r.Render(entry(22, 0, 0), "i", testCondition(), 21)
	a.Set(10, 10, -1)
	if b.At(10, 10) == -1 {
		t.Error("Render must not reuse stamp storage")
	}
}
