package cli

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matzehuels/blendgen/pkg/observability"
)

// runCounter tallies pipeline and cache events for the end-of-run summary.
type runCounter struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	blends  atomic.Int64
	objects atomic.Int64
	skipped atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

func (r *runCounter) OnBlendDrawn(_ context.Context, objects int, _ time.Duration) {
	r.blends.Add(1)
	r.objects.Add(int64(objects))
}

func (r *runCounter) OnObjectSkipped(context.Context, int64, string) { r.skipped.Add(1) }
func (r *runCounter) OnCacheHit(context.Context, string)            { r.hits.Add(1) }
func (r *runCounter) OnCacheMiss(context.Context, string)           { r.misses.Add(1) }

// install registers r and returns a function restoring the hooks it
// replaced.
func (r *runCounter) install() func() {
	prevPipeline := observability.SetPipelineHooks(r)
	prevCache := observability.SetCacheHooks(r)
	return func() {
		observability.SetPipelineHooks(prevPipeline)
		observability.SetCacheHooks(prevCache)
	}
}
