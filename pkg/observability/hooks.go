// Package observability lets callers watch batch generation without the
// library depending on a metrics backend.
//
// Three hook families cover the pipeline (batches, blends, skipped
// objects), the batch cache and the HTTP feed. Each defaults to a no-op.
// Binaries register their own implementation at startup; library code only
// emits:
//
//	prev := observability.SetPipelineHooks(counter)
//	defer observability.SetPipelineHooks(prev)
//
//	observability.Pipeline().OnBlendDrawn(ctx, len(blend), time.Since(start))
//
// Hooks are called from the draw pool's goroutines and must be safe for
// concurrent use.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the batch draw pipeline.
type PipelineHooks interface {
	OnBatchStart(ctx context.Context, index int64, size int)
	OnBatchComplete(ctx context.Context, index int64, duration time.Duration, err error)

	// OnBlendDrawn fires once per rendered blend, from a pool worker.
	OnBlendDrawn(ctx context.Context, objects int, duration time.Duration)

	// OnObjectSkipped fires when an object is not visible in a band.
	OnObjectSkipped(ctx context.Context, id int64, band string)
}

// CacheHooks receives batch cache events. keyType is "batch" for every
// key blendgen writes today.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives events from the HTTP batch feed.
type ServerHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// NoopPipelineHooks ignores every event. Embed it to implement a subset.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnBatchStart(context.Context, int64, int)                     {}
func (NoopPipelineHooks) OnBatchComplete(context.Context, int64, time.Duration, error) {}
func (NoopPipelineHooks) OnBlendDrawn(context.Context, int, time.Duration)             {}
func (NoopPipelineHooks) OnObjectSkipped(context.Context, int64, string)               {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks ignores every event.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// slot holds one registered hook; the zero slot yields noop.
type slot[T any] struct {
	p    atomic.Pointer[T]
	noop T
}

func (s *slot[T]) get() T {
	if h := s.p.Load(); h != nil {
		return *h
	}
	return s.noop
}

// swap stores h and returns the hook it replaced.
func (s *slot[T]) swap(h T) T {
	if old := s.p.Swap(&h); old != nil {
		return *old
	}
	return s.noop
}

var (
	pipelineSlot = slot[PipelineHooks]{noop: NoopPipelineHooks{}}
	cacheSlot    = slot[CacheHooks]{noop: NoopCacheHooks{}}
	serverSlot   = slot[ServerHooks]{noop: NoopServerHooks{}}
)

// SetPipelineHooks registers h and returns the hooks it replaced. A nil h
// is ignored.
func SetPipelineHooks(h PipelineHooks) PipelineHooks {
	if h == nil {
		return pipelineSlot.get()
	}
	return pipelineSlot.swap(h)
}

// SetCacheHooks registers h and returns the hooks it replaced. A nil h is
// ignored.
func SetCacheHooks(h CacheHooks) CacheHooks {
	if h == nil {
		return cacheSlot.get()
	}
	return cacheSlot.swap(h)
}

// SetServerHooks registers h and returns the hooks it replaced. A nil h is
// ignored.
func SetServerHooks(h ServerHooks) ServerHooks {
	if h == nil {
		return serverSlot.get()
	}
	return serverSlot.swap(h)
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheSlot.get() }

// Server returns the registered server hooks.
func Server() ServerHooks { return serverSlot.get() }

// Reset restores the no-op hooks.
func Reset() {
	pipelineSlot.p.Store(nil)
	cacheSlot.p.Store(nil)
	serverSlot.p.Store(nil)
}
