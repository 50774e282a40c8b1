package draw

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs n independent tasks. fn(ctx, i) must write only to slot i of
// whatever it produces, so tasks need no locking. Map returns the first
// error; implementations may stop scheduling tasks once one fails.
type Pool interface {
	Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// SequentialPool runs tasks in index order on the calling goroutine.
type SequentialPool struct{}

// Map implements [Pool].
func (SequentialPool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// ErrgroupPool runs tasks on at most Workers goroutines. The context passed
// to tasks is canceled when any task fails.
type ErrgroupPool struct {
	Workers int
}

// NewErrgroupPool returns a pool of workers goroutines. workers <= 0 uses
// GOMAXPROCS.
func NewErrgroupPool(workers int) *ErrgroupPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ErrgroupPool{Workers: workers}
}

// Map implements [Pool].
func (p *ErrgroupPool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// NewPool returns SequentialPool for workers == 1 and an ErrgroupPool
// otherwise.
func NewPool(workers int) Pool {
	if workers == 1 {
		return SequentialPool{}
	}
	return NewErrgroupPool(workers)
}
