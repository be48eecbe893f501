package parallel

import (
	"context"
	"fmt"
	"iter"

	"github.com/utkarsh5026/parmap/pool"
)

// Map applies fn to every element of items concurrently and returns the
// results in input order. fn is called exactly once per element.
//
// Invalid arguments are rejected before any worker starts: a nil fn with
// pool.ErrInvalidCallable, an out-of-range option with pool.ErrInvalidConfig.
// An empty items slice yields an empty, non-nil result without starting any
// worker. If fn fails for any element, Map returns nil and that element's
// error, unchanged.
func Map[T, R any](
	ctx context.Context,
	fn pool.ProcessFunc[T, R],
	items []T,
	opts ...pool.WorkerPoolOption,
) ([]R, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: map function is nil", pool.ErrInvalidCallable)
	}

	wp, err := pool.NewWorkerPool[T, R](opts...)
	if err != nil {
		return nil, err
	}

	return wp.Process(ctx, items, fn)
}

// MapSeq is Map over an iterator. The sequence is read to the end before
// any worker starts, so it must be finite; when pool.WithMaxTasks is set,
// reading stops once the cap is exceeded and pool.ErrInvalidInput is
// returned. A nil sequence is also rejected with pool.ErrInvalidInput.
func MapSeq[T, R any](
	ctx context.Context,
	fn pool.ProcessFunc[T, R],
	seq iter.Seq[T],
	opts ...pool.WorkerPoolOption,
) ([]R, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: sequence is nil", pool.ErrInvalidInput)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: map function is nil", pool.ErrInvalidCallable)
	}

	wp, err := pool.NewWorkerPool[T, R](opts...)
	if err != nil {
		return nil, err
	}

	items, err := collect(seq, wp.Config().MaxTasks)
	if err != nil {
		return nil, err
	}

	return wp.Process(ctx, items, fn)
}

// collect materializes seq, failing as soon as it yields more than limit
// elements. A limit of zero disables the check.
func collect[T any](seq iter.Seq[T], limit int) ([]T, error) {
	items := []T{}
	for v := range seq {
		if limit > 0 && len(items) == limit {
			return nil, fmt.Errorf("%w: sequence yields more than %d items", pool.ErrInvalidInput, limit)
		}
		items = append(items, v)
	}
	return items, nil
}

// Adapt turns a plain function into a pool.ProcessFunc that never fails.
// A nil f yields a nil ProcessFunc, which Map rejects.
func Adapt[T, R any](f func(T) R) pool.ProcessFunc[T, R] {
	if f == nil {
		return nil
	}
	return func(_ context.Context, v T) (R, error) {
		return f(v), nil
	}
}

// AdaptErr turns a fallible function that ignores the context into a
// pool.ProcessFunc. A nil f yields a nil ProcessFunc.
func AdaptErr[T, R any](f func(T) (R, error)) pool.ProcessFunc[T, R] {
	if f == nil {
		return nil
	}
	return func(_ context.Context, v T) (R, error) {
		return f(v)
	}
}
