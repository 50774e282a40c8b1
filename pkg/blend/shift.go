package blend

import (
	"math"
	"math/rand/v2"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// ShiftOptions bounds the random offset of each object from the blend
// center, as fractions of the stamp size.
type ShiftOptions struct {
	// MaxFrac is the maximum shift as a fraction of the stamp size. In
	// square mode each coordinate is drawn from [-max, max]; in radial
	// mode it is the outer annulus radius.
	MaxFrac float64 `json:"max_frac" toml:"max_frac" yaml:"max_frac"`

	// MinFrac is the inner annulus radius in radial mode. Ignored in
	// square mode.
	MinFrac float64 `json:"min_frac" toml:"min_frac" yaml:"min_frac"`

	// Radial selects annulus sampling instead of the square.
	Radial bool `json:"radial" toml:"radial" yaml:"radial"`
}

// DefaultShift is a square shift of up to 10% of the stamp size.
var DefaultShift = ShiftOptions{MaxFrac: 0.1}

// Validate checks that max >= min >= 0.
func (o ShiftOptions) Validate() error {
	if o.MinFrac < 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "shift min fraction must be >= 0, got %g", o.MinFrac)
	}
	if o.MaxFrac < o.MinFrac {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "shift max fraction %g is below min fraction %g", o.MaxFrac, o.MinFrac)
	}
	return nil
}

// CenterShift draws n independent (dx, dy) offsets in arcseconds for a
// stamp of stampSize arcseconds.
//
// In square mode dx and dy are uniform on [-maxshift, maxshift]. In radial
// mode r² is uniform on [minshift², maxshift²] so the annulus is covered
// with uniform area density, and the angle is uniform on [0, 2π).
//
// Callers are responsible for n >= 1 and valid options; see
// [ShiftOptions.Validate].
func CenterShift(rng *rand.Rand, n int, stampSize float64, opts ShiftOptions) (dx, dy []float64) {
	maxShift := stampSize * opts.MaxFrac
	minShift := stampSize * opts.MinFrac

	dx = make([]float64, n)
	dy = make([]float64, n)
	if opts.Radial {
		lo, hi := minShift*minShift, maxShift*maxShift
		for i := range n {
			r := math.Sqrt(rng.Float64()*(hi-lo) + lo)
			theta := 2 * math.Pi * rng.Float64()
			dx[i] = r * math.Cos(theta)
			dy[i] = r * math.Sin(theta)
		}
		return dx, dy
	}

	for i := range n {
		dx[i] = uniform(rng, -maxShift, maxShift)
	}
	for i := range n {
		dy[i] = uniform(rng, -maxShift, maxShift)
	}
	return dx, dy
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
