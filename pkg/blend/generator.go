package blend

import (
	"context"
	"fmt"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/rng"
)

// ListGenerator produces an endless sequence of blend-catalog batches.
//
// Batch k is sampled from a random stream derived from (Seed, k), so any
// batch can be regenerated on its own after [ListGenerator.Seek]. A
// ListGenerator is not safe for concurrent use.
type ListGenerator struct {
	cfg     Config
	cat     *catalog.Catalog
	sampler Sampler

	next int64
	err  error
}

// NewListGenerator returns a generator over cat. A nil sampler selects
// [DefaultSampler].
func NewListGenerator(cfg Config, cat *catalog.Catalog, sampler Sampler) (*ListGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil || cat.Len() == 0 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "catalog is empty")
	}
	if sampler == nil {
		sampler = DefaultSampler()
	}
	return &ListGenerator{cfg: cfg, cat: cat, sampler: sampler}, nil
}

// Config returns the generator's configuration.
func (g *ListGenerator) Config() Config { return g.cfg }

// Index returns the index of the batch the next call to Next will produce.
func (g *ListGenerator) Index() int64 { return g.next }

// Seek positions the generator so the next call to Next produces batch k.
// It does not clear a stopped generator.
func (g *ListGenerator) Seek(k int64) { g.next = k }

// Next samples the next batch of BatchSize blends.
//
// Sampler errors are returned as-is and leave the generator positioned on
// the same batch. A blend with zero or more than MaxNumber entries is an
// invariant violation: Next returns an [bgerrors.ErrCodeInvariant] error and
// every later call returns the same error.
func (g *ListGenerator) Next(ctx context.Context) ([]catalog.Blend, error) {
	if g.err != nil {
		return nil, g.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := rng.New(g.cfg.Seed, rng.StreamBlends, uint64(g.next))
	batch := make([]catalog.Blend, g.cfg.BatchSize)
	for i := range batch {
		b, err := g.sampler.Sample(r, g.cfg, g.cat)
		if err != nil {
			return nil, fmt.Errorf("sample blend %d of batch %d: %w", i, g.next, err)
		}
		if len(b) < 1 || len(b) > g.cfg.MaxNumber {
			g.err = bgerrors.New(bgerrors.ErrCodeInvariant,
				"blend %d of batch %d has %d objects, want 1..%d", i, g.next, len(b), g.cfg.MaxNumber)
			return nil, g.err
		}
		batch[i] = b
	}
	g.next++
	return batch, nil
}
