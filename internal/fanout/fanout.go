// Package fanout runs one task per unit of work on a bounded pool and
// joins the results before returning. Tasks never share mutable state:
// every task writes only its own result slot, merged by the caller.
package fanout

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is used when a non-positive limit is supplied.
func DefaultLimit() int {
	return runtime.GOMAXPROCS(0)
}

// Map runs fn for every item with at most limit tasks in flight and
// returns the results in input order. The first error cancels the
// remaining tasks and is returned.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = DefaultLimit()
	}
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i, items[i])
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Outcome is the per-task result of Gather.
type Outcome[R any] struct {
	Value R
	Err   error
}

// OK reports whether the task produced a value.
func (o Outcome[R]) OK() bool { return o.Err == nil }

// Gather runs fn for every item like Map, but a failed task only marks
// its own slot; the other tasks keep running. Cancellation of ctx is the
// only way to stop the whole batch early.
func Gather[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) []Outcome[R] {
	if limit <= 0 {
		limit = DefaultLimit()
	}
	out := make([]Outcome[R], len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			v, err := fn(ctx, items[i])
			out[i] = Outcome[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
