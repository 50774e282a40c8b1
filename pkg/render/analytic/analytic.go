// Package analytic renders galaxies as elliptical Gaussians convolved with
// a Gaussian PSF.
//
// The profile is exact under convolution (the covariance of the galaxy and
// the PSF add), so no FFTs are needed. Pixels are sampled at their centers.
package analytic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/render"
	"github.com/matzehuels/blendgen/pkg/survey"
)

// hlrToSigma converts a Gaussian half-light radius to its standard deviation.
const hlrToSigma = 1 / 1.1774100225154747

// Defaults.
const (
	DefaultMinSNR = 0.05
	DefaultMargin = 5.0
)

// Options configures a [Renderer].
type Options struct {
	// MinSNR is the integrated signal-to-noise ratio against the sky below
	// which an object is not visible.
	MinSNR float64

	// Margin is how many profile sigmas an object may sit outside the
	// stamp edge and still be drawn.
	Margin float64
}

// Renderer implements [render.Renderer].
type Renderer struct {
	opts Options
}

// New returns a renderer. Zero options take their defaults.
func New(opts Options) *Renderer {
	if opts.MinSNR <= 0 {
		opts.MinSNR = DefaultMinSNR
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	return &Renderer{opts: opts}
}

// profile is a 2-D Gaussian in arcseconds.
type profile struct {
	flux          float64
	cxx, cyy, cxy float64
}

func newProfile(e catalog.Entry, flux, psfSigma float64) (profile, error) {
	if e.Ellipticity < 0 || e.Ellipticity >= 1 {
		return profile{}, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "object %d: ellipticity %g outside [0, 1)", e.ID, e.Ellipticity)
	}
	if e.HalfLightRadius < 0 {
		return profile{}, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "object %d: negative half-light radius", e.ID)
	}

	sigma := e.HalfLightRadius * hlrToSigma
	q := 1 - e.Ellipticity
	a2 := sigma * sigma / q
	b2 := sigma * sigma * q
	sin, cos := math.Sincos(e.PositionAngle)
	p2 := psfSigma * psfSigma

	return profile{
		flux: flux,
		cxx:  a2*cos*cos + b2*sin*sin + p2,
		cyy:  a2*sin*sin + b2*cos*cos + p2,
		cxy:  (a2 - b2) * sin * cos,
	}, nil
}

// extent returns the largest standard deviation of the profile.
func (p profile) extent() float64 {
	tr := p.cxx + p.cyy
	det := p.cxx*p.cyy - p.cxy*p.cxy
	return math.Sqrt(tr/2 + math.Sqrt(tr*tr/4-det))
}

// Render implements [render.Renderer].
func (r *Renderer) Render(e catalog.Entry, band string, cond survey.Condition, stamp int) (*mat.Dense, error) {
	mag, ok := e.Mag(band)
	if !ok {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "object %d has no %s magnitude", e.ID, band)
	}
	scale := cond.PixelScale()
	if scale <= 0 || stamp <= 0 {
		return nil, fmt.Errorf("invalid geometry: pixel scale %g, stamp %d", scale, stamp)
	}

	p, err := newProfile(e, survey.Flux(cond, mag), cond.PSFSigma())
	if err != nil {
		return nil, err
	}
	det := p.cxx*p.cyy - p.cxy*p.cxy
	if det <= 0 {
		return nil, fmt.Errorf("object %d: degenerate profile in band %s", e.ID, band)
	}

	half := float64(stamp) * scale / 2
	reach := half + r.opts.Margin*p.extent()
	if math.Abs(e.DxSky()) > reach || math.Abs(e.DySky()) > reach {
		return nil, fmt.Errorf("object %d at (%.2f, %.2f): %w", e.ID, e.DxSky(), e.DySky(), render.ErrNotVisible)
	}

	ixx, iyy, ixy := p.cyy/det, p.cxx/det, -p.cxy/det
	norm := p.flux * scale * scale / (2 * math.Pi * math.Sqrt(det))
	center := float64(stamp-1) / 2
	sky := cond.MeanSkyLevel()

	out := mat.NewDense(stamp, stamp, nil)
	var snr2 float64
	for row := range stamp {
		y := (float64(row)-center)*scale - e.DySky()
		for col := range stamp {
			x := (float64(col)-center)*scale - e.DxSky()
			v := norm * math.Exp(-0.5*(ixx*x*x+2*ixy*x*y+iyy*y*y))
			out.Set(row, col, v)
			if v+sky > 0 {
				snr2 += v * v / (v + sky)
			}
		}
	}
	if math.Sqrt(snr2) < r.opts.MinSNR {
		return nil, fmt.Errorf("object %d in band %s: snr %.3g below %.3g: %w", e.ID, band, math.Sqrt(snr2), r.opts.MinSNR, render.ErrNotVisible)
	}
	return out, nil
}
