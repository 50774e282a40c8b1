// Package pipeline wires catalogs, samplers, observing conditions and
// renderers into a batch generator, and adds caching on top.
//
// It is the single place where CLI flags, options files and HTTP requests
// become generator configuration, so every entry point draws identical
// batches for identical options.
//
// # Usage
//
//	opts := pipeline.Options{Catalog: "catalog.parquet", Bands: []string{"g", "r", "i"}}
//	runner := pipeline.NewRunner(cache, nil, logger)
//	cat, err := runner.LoadCatalog(opts)
//	stats, err := runner.Run(ctx, opts, cat, 10, func(b *draw.Batch) error {
//	    return sink.WriteBatch(dir, b)
//	})
//
// Batches are addressable by index: [Runner.Batch] draws batch k directly,
// and returns the same pixels as the k-th batch of a sequential run.
package pipeline

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blendgen/pkg/blend"
	"github.com/matzehuels/blendgen/pkg/cache"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/render"
	"github.com/matzehuels/blendgen/pkg/render/analytic"
	"github.com/matzehuels/blendgen/pkg/survey"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, config files and server
// =============================================================================

const (
	// DefaultStampSize is the stamp side length in arcseconds.
	DefaultStampSize = 24.0

	// DefaultPSFStampSize is the PSF stamp side length in pixels.
	DefaultPSFStampSize = 41

	// DefaultMaxNumber is the number of isolated-image slots per blend.
	DefaultMaxNumber = 4

	// DefaultBatchSize is the number of blends per batch.
	DefaultBatchSize = 8

	// DefaultSeed is the root seed for sampling and noise.
	DefaultSeed = uint64(42)

	// DefaultWorkers draws blends sequentially.
	DefaultWorkers = 1
)

// DefaultBands is the default band order.
var DefaultBands = []string{"u", "g", "r", "i", "z", "y"}

// Options contains all configuration for a batch feed.
// Zero values take the Default* values on [Options.SetDefaults], except for
// Seed and ShiftMaxFrac where zero is meaningful: those default when nil.
type Options struct {
	// Catalog is the master catalog path (.parquet, .json, .sqlite, .db).
	Catalog string `json:"catalog,omitempty" toml:"catalog" yaml:"catalog,omitempty"`
	// CatalogTable is the table read from SQLite catalogs.
	CatalogTable string `json:"catalog_table,omitempty" toml:"catalog_table" yaml:"catalog_table,omitempty"`

	// Draw options
	StampSize    float64  `json:"stamp_size" toml:"stamp_size" yaml:"stamp_size"`
	PSFStampSize int      `json:"psf_stamp_size" toml:"psf_stamp_size" yaml:"psf_stamp_size"`
	MaxNumber    int      `json:"max_number" toml:"max_number" yaml:"max_number"`
	BatchSize    int      `json:"batch_size" toml:"batch_size" yaml:"batch_size"`
	Bands        []string `json:"bands" toml:"bands" yaml:"bands"`
	AddNoise     bool     `json:"add_noise" toml:"add_noise" yaml:"add_noise"`
	Seed         *uint64  `json:"seed" toml:"seed" yaml:"seed"` // nil uses DefaultSeed; 0 is a valid seed

	// Sampling options
	CutBand      string  `json:"cut_band" toml:"cut_band" yaml:"cut_band"`
	MagCut       float64 `json:"mag_cut" toml:"mag_cut" yaml:"mag_cut"`
	ShiftMaxFrac *float64 `json:"shift_max_frac" toml:"shift_max_frac" yaml:"shift_max_frac"` // nil uses the default; 0 keeps objects centered
	ShiftMinFrac float64 `json:"shift_min_frac,omitempty" toml:"shift_min_frac" yaml:"shift_min_frac,omitempty"`
	Radial       bool    `json:"radial,omitempty" toml:"radial" yaml:"radial,omitempty"`
	IncludeMax   bool    `json:"include_max,omitempty" toml:"include_max" yaml:"include_max,omitempty"`

	// Observing conditions
	Survey       string  `json:"survey" toml:"survey" yaml:"survey"`
	SeeingJitter float64 `json:"seeing_jitter,omitempty" toml:"seeing_jitter" yaml:"seeing_jitter,omitempty"`

	// Rendering and execution
	MinSNR     float64 `json:"min_snr" toml:"min_snr" yaml:"min_snr"`
	Workers    int     `json:"workers" toml:"workers" yaml:"workers"` // <0 uses every CPU
	StartBatch int64   `json:"start_batch,omitempty" toml:"start_batch" yaml:"start_batch,omitempty"`
	Refresh    bool    `json:"refresh,omitempty" toml:"refresh" yaml:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger     `json:"-" toml:"-" yaml:"-"`
	Sampler  blend.Sampler   `json:"-" toml:"-" yaml:"-"` // nil uses blend.RandomSampler
	Renderer render.Renderer `json:"-" toml:"-" yaml:"-"` // nil uses analytic.Renderer

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Uint64 returns a pointer to v, for optional fields such as Seed.
func Uint64(v uint64) *uint64 { return &v }

// Float64 returns a pointer to v, for optional fields such as ShiftMaxFrac.
func Float64(v float64) *float64 { return &v }

func (o *Options) seed() uint64 {
	if o.Seed == nil {
		return DefaultSeed
	}
	return *o.Seed
}

func (o *Options) shiftMaxFrac() float64 {
	if o.ShiftMaxFrac == nil {
		return blend.DefaultShift.MaxFrac
	}
	return *o.ShiftMaxFrac
}

// DefaultOptions returns options with every default applied.
func DefaultOptions() Options {
	var o Options
	o.SetDefaults()
	return o
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
	if o.CatalogTable == "" {
		o.CatalogTable = catalog.DefaultSQLiteTable
	}
	if o.StampSize == 0 {
		o.StampSize = DefaultStampSize
	}
	if o.PSFStampSize == 0 {
		o.PSFStampSize = DefaultPSFStampSize
	}
	if o.MaxNumber == 0 {
		o.MaxNumber = DefaultMaxNumber
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if len(o.Bands) == 0 {
		o.Bands = slices.Clone(DefaultBands)
	}
	if o.Seed == nil {
		o.Seed = Uint64(DefaultSeed)
	}
	if o.CutBand == "" {
		o.CutBand = catalog.DefaultCutBand
	}
	if o.MagCut == 0 {
		o.MagCut = blend.DefaultMagCut
	}
	if o.ShiftMaxFrac == nil {
		o.ShiftMaxFrac = Float64(blend.DefaultShift.MaxFrac)
	}
	if o.Survey == "" {
		o.Survey = survey.DefaultSurvey
	}
	if o.MinSNR == 0 {
		o.MinSNR = analytic.DefaultMinSNR
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the options without changing them.
func (o *Options) Validate() error {
	if err := o.BlendConfig().Validate(); err != nil {
		return err
	}
	if o.PSFStampSize < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "psf_stamp_size must be >= 1, got %d", o.PSFStampSize)
	}
	if err := bgerrors.ValidateBands(o.Bands); err != nil {
		return err
	}
	if err := bgerrors.ValidateBandName(o.CutBand); err != nil {
		return err
	}
	if err := o.shift().Validate(); err != nil {
		return err
	}
	s, err := survey.Lookup(o.Survey)
	if err != nil {
		return err
	}
	if _, err := s.Conditions(o.Bands); err != nil {
		return err
	}
	if o.SeeingJitter < 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "seeing_jitter must be >= 0, got %g", o.SeeingJitter)
	}
	if o.MinSNR < 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "min_snr must be >= 0, got %g", o.MinSNR)
	}
	if o.StartBatch < 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "start_batch must be >= 0, got %d", o.StartBatch)
	}
	return nil
}

// ValidateAndSetDefaults applies defaults and validates.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Cacheable reports whether batches drawn with these options can be keyed.
// Custom samplers and renderers are opaque to the keyer.
func (o *Options) Cacheable() bool {
	return o.Sampler == nil && o.Renderer == nil
}

func (o *Options) shift() blend.ShiftOptions {
	return blend.ShiftOptions{MaxFrac: o.shiftMaxFrac(), MinFrac: o.ShiftMinFrac, Radial: o.Radial}
}

// BlendConfig returns the blend list generator configuration.
func (o *Options) BlendConfig() blend.Config {
	return blend.Config{
		StampSize: o.StampSize,
		MaxNumber: o.MaxNumber,
		BatchSize: o.BatchSize,
		Seed:      o.seed(),
	}
}

// NewSampler returns the configured sampler.
func (o *Options) NewSampler() blend.Sampler {
	if o.Sampler != nil {
		return o.Sampler
	}
	return &blend.RandomSampler{
		CutBand:    o.CutBand,
		MagCut:     o.MagCut,
		Shift:      o.shift(),
		IncludeMax: o.IncludeMax,
	}
}

// NewRenderer returns the configured renderer.
func (o *Options) NewRenderer() render.Renderer {
	if o.Renderer != nil {
		return o.Renderer
	}
	return analytic.New(analytic.Options{MinSNR: o.MinSNR})
}

// NewConditions returns the observing condition generator. Without seeing
// jitter every blend sees the survey's median conditions.
func (o *Options) NewConditions() (survey.Generator, error) {
	s, err := survey.Lookup(o.Survey)
	if err != nil {
		return nil, err
	}
	if o.SeeingJitter > 0 {
		return survey.NewJitterGenerator(s, o.Bands, o.BatchSize, o.SeeingJitter, o.seed())
	}
	set, err := s.Conditions(o.Bands)
	if err != nil {
		return nil, err
	}
	return &survey.ConstantGenerator{Set: set, BatchSize: o.BatchSize}, nil
}

// DrawOptions returns the batch draw configuration.
func (o *Options) DrawOptions() draw.Options {
	return draw.Options{
		StampSize:    o.StampSize,
		PSFStampSize: o.PSFStampSize,
		MaxNumber:    o.MaxNumber,
		BatchSize:    o.BatchSize,
		Bands:        slices.Clone(o.Bands),
		AddNoise:     o.AddNoise,
		Seed:         o.seed(),
		Renderer:     o.NewRenderer(),
		Logger:       o.Logger,
	}
}

// BatchKeyOpts returns cache key options for batch drawing.
func (o *Options) BatchKeyOpts() cache.BatchKeyOpts {
	return cache.BatchKeyOpts{
		StampSize:    o.StampSize,
		PSFStampSize: o.PSFStampSize,
		MaxNumber:    o.MaxNumber,
		BatchSize:    o.BatchSize,
		Bands:        slices.Clone(o.Bands),
		AddNoise:     o.AddNoise,
		Seed:         o.seed(),
		Survey:       o.Survey,
		SeeingJitter: o.SeeingJitter,
		ShiftMaxFrac: o.shiftMaxFrac(),
		ShiftMinFrac: o.ShiftMinFrac,
		Radial:       o.Radial,
		CutBand:      o.CutBand,
		MagCut:       o.MagCut,
		IncludeMax:   o.IncludeMax,
		MinSNR:       o.MinSNR,
	}
}
