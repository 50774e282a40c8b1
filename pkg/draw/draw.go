// Package draw renders blend catalogs into image batches.
//
// # Overview
//
// [DrawBlend] renders one blend under one [survey.ConditionSet]. For every
// band it draws each object into a shared composite canvas and into its own
// isolated slot, optionally adds Poisson noise to the composite, and draws
// the band's PSF. Objects the renderer reports as not visible are skipped
// for that band only.
//
// A [Generator] pulls one batch of blends and one batch of condition sets
// per advance, dispatches DrawBlend through a [Pool] and stacks the results
// in input order:
//
//	gen, _ := draw.NewGenerator(blends, conds, opts, draw.NewErrgroupPool(8))
//	batch, err := gen.Next(ctx)
//	// batch.BlendImages has shape [batch_size, H, W, bands]
//
// Noise for blend i of batch k in band b is seeded from (Seed, k, i, b), so
// output is identical whether or not a pool is used.
package draw

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/ndarray"
	"github.com/matzehuels/blendgen/pkg/noise"
	"github.com/matzehuels/blendgen/pkg/observability"
	"github.com/matzehuels/blendgen/pkg/render"
	"github.com/matzehuels/blendgen/pkg/rng"
	"github.com/matzehuels/blendgen/pkg/survey"
)

// Options configures rendering.
type Options struct {
	// StampSize is the stamp side length in arcseconds.
	StampSize float64

	// PSFStampSize is the PSF stamp side length in pixels.
	PSFStampSize int

	// MaxNumber is the number of isolated-image slots per blend.
	MaxNumber int

	// BatchSize is the number of blends per batch.
	BatchSize int

	// Bands lists band identifiers in channel order.
	Bands []string

	// AddNoise enables Poisson noise on composite images.
	AddNoise bool

	// Seed is the root noise seed.
	Seed uint64

	// Renderer draws individual objects.
	Renderer render.Renderer

	// Logger receives skip and batch messages. Nil uses log.Default().
	Logger *log.Logger
}

// Validate checks opts.
func (o Options) Validate() error {
	if o.StampSize <= 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "stamp_size must be > 0, got %g", o.StampSize)
	}
	if o.PSFStampSize < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "psf_stamp_size must be >= 1, got %d", o.PSFStampSize)
	}
	if o.MaxNumber < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "max_number must be >= 1, got %d", o.MaxNumber)
	}
	if o.BatchSize < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "batch_size must be >= 1, got %d", o.BatchSize)
	}
	if err := bgerrors.ValidateBands(o.Bands); err != nil {
		return err
	}
	if o.Renderer == nil {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "no renderer configured")
	}
	return nil
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Result is one rendered blend.
type Result struct {
	// Blend is the composite image, shape [H, W, bands].
	Blend *ndarray.Array

	// Isolated holds each object alone, shape [max_number, H, W, bands].
	// Slots past the blend length and skipped objects stay zero.
	Isolated *ndarray.Array

	// PSF holds the PSF stamps, shape [psf, psf, bands].
	PSF *ndarray.Array

	// SkyLevel is the mean sky level per band, zero without noise.
	SkyLevel []float64

	// Catalog is a copy of the input blend annotated with pixel centroids.
	Catalog catalog.Blend
}

// DrawBlend renders b under conds. seed seeds the noise of this blend; band
// j uses a stream derived from (seed, j).
//
// A render error other than [render.ErrNotVisible] aborts the blend and is
// returned as an [bgerrors.ErrCodeRender] error.
func DrawBlend(ctx context.Context, b catalog.Blend, conds survey.ConditionSet, opts Options, seed uint64) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := conds.Check(opts.Bands); err != nil {
		return nil, err
	}
	if len(b) > opts.MaxNumber {
		return nil, bgerrors.New(bgerrors.ErrCodeInvariant, "blend has %d objects, max_number is %d", len(b), opts.MaxNumber)
	}

	start := time.Now()
	logger := opts.logger()
	hooks := observability.Pipeline()

	scale := conds[0].PixelScale()
	n := StampPixels(opts.StampSize, scale)
	if n < 1 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "stamp_size %g is smaller than one %g arcsec pixel", opts.StampSize, scale)
	}
	nb := len(opts.Bands)

	res := &Result{
		Blend:    ndarray.Zeros(n, n, nb),
		Isolated: ndarray.Zeros(opts.MaxNumber, n, n, nb),
		PSF:      ndarray.Zeros(opts.PSFStampSize, opts.PSFStampSize, nb),
		SkyLevel: make([]float64, nb),
		Catalog:  b.Clone(),
	}
	for k := range res.Catalog {
		e := &res.Catalog[k]
		e.DxPix = PixelCenter(e.DxSky(), opts.StampSize, scale)
		e.DyPix = PixelCenter(e.DySky(), opts.StampSize, scale)
		e.HasPixels = true
	}

	for j, cond := range conds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		band := opts.Bands[j]

		for k, e := range res.Catalog {
			stamp, err := opts.Renderer.Render(e, band, cond, n)
			if errors.Is(err, render.ErrNotVisible) {
				logger.Debug("source not visible", "id", e.ID, "band", band, "reason", err)
				hooks.OnObjectSkipped(ctx, e.ID, band)
				continue
			}
			if err != nil {
				return nil, bgerrors.Wrap(bgerrors.ErrCodeRender, err, "render object %d (id %d) in band %s", k, e.ID, band).
					With("object", k, "id", e.ID, "band", band)
			}
			if stamp == nil {
				return nil, bgerrors.New(bgerrors.ErrCodeRender, "renderer returned no stamp for object %d in band %s", k, band)
			}
			if r, c := stamp.Dims(); r != n || c != n {
				return nil, bgerrors.New(bgerrors.ErrCodeRender, "renderer returned %dx%d stamp for object %d, want %dx%d", r, c, k, n, n)
			}
			if err := res.Blend.AddPlane(stamp, j); err != nil {
				return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "add object %d to band %s", k, band)
			}
			if err := res.Isolated.Index(k).SetPlane(stamp, j); err != nil {
				return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "store isolated object %d", k)
			}
		}

		if opts.AddNoise {
			sky := cond.MeanSkyLevel()
			canvas := res.Blend.Plane(j)
			noise.AddPoisson(canvas, sky, rng.NewSource(seed, uint64(j)))
			if err := res.Blend.SetPlane(canvas, j); err != nil {
				return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "store band %s", band)
			}
			res.SkyLevel[j] = sky
		}

		psf := cond.DrawPSF(opts.PSFStampSize)
		if err := res.PSF.SetPlane(psf, j); err != nil {
			return nil, bgerrors.Wrap(bgerrors.ErrCodeRender, err, "draw psf in band %s", band).With("band", band)
		}
	}

	hooks.OnBlendDrawn(ctx, len(b), time.Since(start))
	return res, nil
}
