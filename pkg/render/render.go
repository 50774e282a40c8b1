package render

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/survey"
)

// ErrNotVisible reports that an object contributes nothing detectable to a
// stamp. It is expected and non-fatal.
var ErrNotVisible = errors.New("source not visible")

// Renderer draws one blend entry.
//
// The entry's DxSky and DySky give its offset from the stamp center in
// arcseconds. Implementations return a new stamp×stamp matrix, an error
// wrapping [ErrNotVisible], or any other error for defects in the entry or
// the condition.
type Renderer interface {
	Render(e catalog.Entry, band string, cond survey.Condition, stamp int) (*mat.Dense, error)
}

// Func adapts a function to [Renderer].
type Func func(e catalog.Entry, band string, cond survey.Condition, stamp int) (*mat.Dense, error)

// Render calls f.
func (f Func) Render(e catalog.Entry, band string, cond survey.Condition, stamp int) (*mat.Dense, error) {
	return f(e, band, cond, stamp)
}
