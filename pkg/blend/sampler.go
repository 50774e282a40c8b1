// Package blend selects and positions the sources that make up each
// synthetic blend scene.
//
// A [Sampler] turns the master catalog into one [catalog.Blend]. The
// default [RandomSampler] draws a random object count, picks that many
// flux-limited records with replacement and scatters them around the blend
// center with [CenterShift]. A [ListGenerator] calls a sampler batch_size
// times per advance and enforces the object-count invariant.
package blend

import (
	"math/rand/v2"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// DefaultMagCut is the faint-end cut applied by [RandomSampler].
const DefaultMagCut = 25.3

// Config is the subset of generation options samplers see.
type Config struct {
	// StampSize is the stamp side length in arcseconds.
	StampSize float64

	// MaxNumber is the maximum number of objects per blend.
	MaxNumber int

	// BatchSize is the number of blends per advance.
	BatchSize int

	// Seed is the root seed for every batch's random stream.
	Seed uint64
}

// Validate checks the numeric bounds of c.
func (c Config) Validate() error {
	if c.StampSize <= 0 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "stamp_size must be > 0, got %g", c.StampSize)
	}
	if c.MaxNumber < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "max_number must be >= 1, got %d", c.MaxNumber)
	}
	if c.BatchSize < 1 {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "batch_size must be >= 1, got %d", c.BatchSize)
	}
	return nil
}

// Sampler builds one blend catalog from the master catalog.
//
// Implementations must draw all randomness from rng so batches are
// reproducible. The returned blend must hold between 1 and cfg.MaxNumber
// entries; [ListGenerator] treats anything else as a fatal invariant
// violation.
type Sampler interface {
	Sample(rng *rand.Rand, cfg Config, cat *catalog.Catalog) (catalog.Blend, error)
}

// SamplerFunc adapts a function to [Sampler].
type SamplerFunc func(rng *rand.Rand, cfg Config, cat *catalog.Catalog) (catalog.Blend, error)

// Sample calls f.
func (f SamplerFunc) Sample(rng *rand.Rand, cfg Config, cat *catalog.Catalog) (catalog.Blend, error) {
	return f(rng, cfg, cat)
}

// RandomSampler is the default sampling strategy.
//
// The object count N is drawn uniformly from [1, MaxNumber-1], so a blend
// never holds exactly MaxNumber objects unless IncludeMax is set (which
// widens the range to [1, MaxNumber]). With MaxNumber == 1 every blend
// holds one object.
type RandomSampler struct {
	// CutBand is the band whose magnitude is compared against MagCut.
	CutBand string

	// MagCut is the faint-end magnitude limit (inclusive).
	MagCut float64

	// Shift bounds the per-object offsets from the blend center.
	Shift ShiftOptions

	// IncludeMax allows blends of exactly MaxNumber objects.
	IncludeMax bool
}

// DefaultSampler returns a [RandomSampler] with an i-band cut at 25.3 and
// a square shift of up to 10% of the stamp size.
func DefaultSampler() *RandomSampler {
	return &RandomSampler{
		CutBand: catalog.DefaultCutBand,
		MagCut:  DefaultMagCut,
		Shift:   DefaultShift,
	}
}

// Sample implements [Sampler].
func (s *RandomSampler) Sample(rng *rand.Rand, cfg Config, cat *catalog.Catalog) (catalog.Blend, error) {
	n := s.count(rng, cfg.MaxNumber)

	eligible := cat.BrighterThan(s.CutBand, s.MagCut)
	if len(eligible) == 0 {
		return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidCatalog, catalog.ErrNoEligible,
			"no records with %s <= %.2f among %d", s.CutBand, s.MagCut, cat.Len())
	}

	dx, dy := CenterShift(rng, n, cfg.StampSize, s.Shift)
	out := make(catalog.Blend, n)
	for i := range n {
		rec := cat.Record(eligible[rng.IntN(len(eligible))])
		out[i] = catalog.NewEntry(rec, dx[i], dy[i])
	}
	return out, nil
}

func (s *RandomSampler) count(rng *rand.Rand, maxNumber int) int {
	hi := maxNumber
	if s.IncludeMax {
		hi++
	}
	if hi <= 2 {
		return 1
	}
	return 1 + rng.IntN(hi-1)
}
