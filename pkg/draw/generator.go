package draw

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/blendgen/pkg/catalog"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/ndarray"
	"github.com/matzehuels/blendgen/pkg/observability"
	"github.com/matzehuels/blendgen/pkg/rng"
	"github.com/matzehuels/blendgen/pkg/survey"
)

// BlendSource produces batches of blend catalogs. [blend.ListGenerator]
// implements it.
type BlendSource interface {
	Next(ctx context.Context) ([]catalog.Blend, error)
}

// Seeker is implemented by sources that can jump to a batch index.
type Seeker interface {
	Seek(k int64)
}

// Batch is one generator advance.
type Batch struct {
	// ID uniquely identifies this batch.
	ID uuid.UUID `json:"id"`

	// Index is the batch counter the batch was drawn at.
	Index int64 `json:"index"`

	// Bands lists the band of each channel.
	Bands []string `json:"bands"`

	// BlendImages has shape [batch_size, H, W, bands].
	BlendImages *ndarray.Array `json:"blend_images"`

	// IsolatedImages has shape [batch_size, max_number, H, W, bands].
	IsolatedImages *ndarray.Array `json:"isolated_images"`

	// PSFImages has shape [batch_size, psf, psf, bands].
	PSFImages *ndarray.Array `json:"psf_images"`

	// SkyLevel has shape [batch_size, bands].
	SkyLevel *ndarray.Array `json:"sky_level"`

	// Catalogs holds the annotated blend catalogs in batch order.
	Catalogs []catalog.Blend `json:"catalogs"`
}

// Generator draws batches of blends. It is not safe for concurrent use;
// parallelism happens inside Next through the configured [Pool].
type Generator struct {
	blends BlendSource
	conds  survey.Generator
	opts   Options
	pool   Pool
	next   int64
}

// NewGenerator returns a generator. A nil pool draws sequentially.
func NewGenerator(blends BlendSource, conds survey.Generator, opts Options, pool Pool) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if blends == nil || conds == nil {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "blend source and condition generator are required")
	}
	if pool == nil {
		pool = SequentialPool{}
	}
	return &Generator{blends: blends, conds: conds, opts: opts, pool: pool}, nil
}

// Index returns the index of the batch the next call to Next will produce.
func (g *Generator) Index() int64 { return g.next }

// Seek positions the generator, and any source that implements [Seeker],
// on batch k.
func (g *Generator) Seek(k int64) {
	g.next = k
	if s, ok := g.blends.(Seeker); ok {
		s.Seek(k)
	}
	if s, ok := g.conds.(Seeker); ok {
		s.Seek(k)
	}
}

// Next draws the next batch.
//
// Any blend that fails aborts the whole batch; no partial batch is
// returned. Once the blend source has produced a batch the generator
// advances even if drawing fails, so it stays aligned with its sources.
func (g *Generator) Next(ctx context.Context) (*Batch, error) {
	index := g.next
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnBatchStart(ctx, index, g.opts.BatchSize)

	batch, err := g.draw(ctx, index)
	hooks.OnBatchComplete(ctx, index, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	g.opts.logger().Debug("drew batch", "index", index, "blends", len(batch.Catalogs), "duration", time.Since(start))
	return batch, nil
}

func (g *Generator) draw(ctx context.Context, index int64) (*Batch, error) {
	blends, err := g.blends.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("next blend list: %w", err)
	}
	g.next++

	sets, err := g.conds.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("next observing conditions: %w", err)
	}
	if len(blends) != g.opts.BatchSize || len(sets) != len(blends) {
		return nil, bgerrors.New(bgerrors.ErrCodeInvariant,
			"batch %d: got %d blends and %d condition sets, want %d", index, len(blends), len(sets), g.opts.BatchSize).
			With("batch", index)
	}

	n, err := g.geometry(sets)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(blends))
	err = g.pool.Map(ctx, len(blends), func(ctx context.Context, i int) error {
		seed := rng.Derive(g.opts.Seed, rng.StreamNoise, uint64(index), uint64(i))
		r, err := DrawBlend(ctx, blends[i], sets[i], g.opts, seed)
		if err != nil {
			return fmt.Errorf("batch %d blend %d: %w", index, i, err)
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return g.stack(index, n, results)
}

// geometry returns the common stamp size in pixels of sets.
func (g *Generator) geometry(sets []survey.ConditionSet) (int, error) {
	n := -1
	for i, set := range sets {
		if len(set) == 0 {
			return 0, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "condition set %d is empty", i)
		}
		m := StampPixels(g.opts.StampSize, set[0].PixelScale())
		if n >= 0 && m != n {
			return 0, bgerrors.New(bgerrors.ErrCodeInvalidConfig,
				"condition set %d gives %d pixel stamps, set 0 gives %d", i, m, n)
		}
		n = m
	}
	return n, nil
}

func (g *Generator) stack(index int64, n int, results []*Result) (*Batch, error) {
	bs, nb, p := len(results), len(g.opts.Bands), g.opts.PSFStampSize
	batch := &Batch{
		ID:             uuid.New(),
		Index:          index,
		Bands:          append([]string(nil), g.opts.Bands...),
		BlendImages:    ndarray.Zeros(bs, n, n, nb),
		IsolatedImages: ndarray.Zeros(bs, g.opts.MaxNumber, n, n, nb),
		PSFImages:      ndarray.Zeros(bs, p, p, nb),
		SkyLevel:       ndarray.Zeros(bs, nb),
		Catalogs:       make([]catalog.Blend, bs),
	}
	for i, r := range results {
		for _, pair := range [][2]*ndarray.Array{
			{batch.BlendImages.Index(i), r.Blend},
			{batch.IsolatedImages.Index(i), r.Isolated},
			{batch.PSFImages.Index(i), r.PSF},
		} {
			if err := pair[0].CopyFrom(pair[1]); err != nil {
				return nil, bgerrors.Wrap(bgerrors.ErrCodeInternal, err, "stack blend %d", i)
			}
		}
		for j, v := range r.SkyLevel {
			batch.SkyLevel.Set(v, i, j)
		}
		batch.Catalogs[i] = r.Catalog
	}
	return batch, nil
}
