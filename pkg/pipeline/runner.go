package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/blendgen/pkg/blend"
	"github.com/matzehuels/blendgen/pkg/cache"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/observability"
)

// ErrStop may be returned by a [Runner.Run] callback to end the run early
// without an error.
var ErrStop = errors.New("stop")

// keyTypeBatch labels batch entries in cache hooks.
const keyTypeBatch = "batch"

// Runner encapsulates generator construction with caching.
// The CLI and the HTTP server both use it.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store batches. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// Stats summarizes a [Runner.Run].
type Stats struct {
	Batches   int
	Blends    int
	Objects   int
	CacheHits int
	Duration  time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// LoadCatalog reads the master catalog named by opts.Catalog.
func (r *Runner) LoadCatalog(opts Options) (*catalog.Catalog, error) {
	if opts.Catalog == "" {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "catalog path is required")
	}
	start := time.Now()

	var (
		cat *catalog.Catalog
		err error
	)
	ext := strings.ToLower(filepath.Ext(opts.Catalog))
	if (ext == ".sqlite" || ext == ".db") && opts.CatalogTable != "" {
		cat, err = catalog.ReadSQLite(opts.Catalog, opts.CatalogTable)
	} else {
		cat, err = catalog.Load(opts.Catalog)
	}
	if err != nil {
		return nil, err
	}
	if err := checkBands(opts, cat); err != nil {
		return nil, err
	}

	r.Logger.Info("loaded catalog",
		"path", opts.Catalog,
		"records", cat.Len(),
		"duration", time.Since(start))
	return cat, nil
}

// checkBands reports configured bands that no record of cat has a
// magnitude for, including the cut band when the default sampler is used.
// Empty options fall back to the defaults SetDefaults would apply.
func checkBands(opts Options, cat *catalog.Catalog) error {
	bands := slices.Clone(opts.Bands)
	if len(bands) == 0 {
		bands = slices.Clone(DefaultBands)
	}
	if opts.Sampler == nil {
		cut := opts.CutBand
		if cut == "" {
			cut = catalog.DefaultCutBand
		}
		bands = append(bands, cut)
	}
	have := cat.Bands()
	for _, b := range bands {
		if !slices.Contains(have, b) {
			return bgerrors.New(bgerrors.ErrCodeInvalidBand,
				"band %q has no magnitudes in catalog %s (catalog bands: %v)", b, opts.Catalog, have).
				With("band", b)
		}
	}
	return nil
}

// NewGenerator builds a batch generator positioned at opts.StartBatch.
func (r *Runner) NewGenerator(opts Options, cat *catalog.Catalog) (*draw.Generator, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if cat == nil {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "catalog is required")
	}

	blends, err := blend.NewListGenerator(opts.BlendConfig(), cat, opts.NewSampler())
	if err != nil {
		return nil, err
	}
	conds, err := opts.NewConditions()
	if err != nil {
		return nil, err
	}
	g, err := draw.NewGenerator(blends, conds, opts.DrawOptions(), draw.NewPool(opts.Workers))
	if err != nil {
		return nil, err
	}
	g.Seek(opts.StartBatch)
	return g, nil
}

// Batch returns batch index, from the cache when possible. The bool
// reports a cache hit.
func (r *Runner) Batch(ctx context.Context, opts Options, cat *catalog.Catalog, index int64) (*draw.Batch, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}
	if index < 0 {
		return nil, false, bgerrors.New(bgerrors.ErrCodeInvalidInput, "batch index must be >= 0, got %d", index)
	}
	if cat == nil {
		return nil, false, bgerrors.New(bgerrors.ErrCodeInvalidInput, "catalog is required")
	}

	key := r.key(opts, cat.Fingerprint(), index)
	if b, ok := r.cached(ctx, opts, key); ok {
		return b, true, nil
	}

	opts.StartBatch = index
	g, err := r.NewGenerator(opts, cat)
	if err != nil {
		return nil, false, err
	}
	b, err := g.Next(ctx)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, key, b)
	return b, false, nil
}

// Run draws n batches starting at opts.StartBatch and hands each to fn in
// index order. n <= 0 runs until ctx is canceled or fn returns [ErrStop].
// Cached batches are served without drawing.
func (r *Runner) Run(ctx context.Context, opts Options, cat *catalog.Catalog, n int, fn func(*draw.Batch) error) (stats Stats, err error) {
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return stats, fmt.Errorf("invalid options: %w", err)
	}
	g, err := r.NewGenerator(opts, cat)
	if err != nil {
		return stats, err
	}
	fingerprint := cat.Fingerprint()

	for index := opts.StartBatch; n <= 0 || stats.Batches < n; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		key := r.key(opts, fingerprint, index)
		b, hit := r.cached(ctx, opts, key)
		if !hit {
			if g.Index() != index {
				g.Seek(index)
			}
			if b, err = g.Next(ctx); err != nil {
				return stats, err
			}
			r.store(ctx, key, b)
		} else {
			stats.CacheHits++
		}

		stats.Batches++
		stats.Blends += len(b.Catalogs)
		for _, c := range b.Catalogs {
			stats.Objects += len(c)
		}
		r.Logger.Debug("batch ready", "index", index, "cached", hit)

		if err := fn(b); err != nil {
			if errors.Is(err, ErrStop) {
				return stats, nil
			}
			return stats, err
		}
	}
	return stats, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// key returns the cache key of batch index, or "" when opts can't be cached.
func (r *Runner) key(opts Options, fingerprint string, index int64) string {
	if !opts.Cacheable() {
		return ""
	}
	return r.Keyer.BatchKey(fingerprint, opts.BatchKeyOpts(), index)
}

func (r *Runner) cached(ctx context.Context, opts Options, key string) (*draw.Batch, bool) {
	if key == "" || opts.Refresh {
		return nil, false
	}
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, keyTypeBatch)
		return nil, false
	}
	b, err := draw.DecodeBatch(data)
	if err != nil {
		// Stale encoding; redraw and overwrite.
		r.Logger.Debug("discarding cached batch", "error", err)
		hooks.OnCacheMiss(ctx, keyTypeBatch)
		return nil, false
	}
	if index, ok := cache.BatchIndex(key); ok && index != b.Index {
		r.Logger.Warn("cached batch has the wrong index, redrawing", "key", key, "index", b.Index)
		hooks.OnCacheMiss(ctx, keyTypeBatch)
		return nil, false
	}
	if err := b.CheckShape(opts.DrawOptions()); err != nil {
		r.Logger.Warn("cached batch does not match options, redrawing", "key", key, "error", err)
		hooks.OnCacheMiss(ctx, keyTypeBatch)
		return nil, false
	}
	hooks.OnCacheHit(ctx, keyTypeBatch)
	return b, true
}

func (r *Runner) store(ctx context.Context, key string, b *draw.Batch) {
	if key == "" {
		return
	}
	data, err := draw.EncodeBatch(b)
	if err != nil {
		r.Logger.Warn("encode batch for cache", "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLBatch); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeBatch, len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
