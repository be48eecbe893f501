package pool

import "context"

// ProcessFunc is a function type that defines how individual tasks are processed in the worker pool.
// It takes a context for cancellation control and a task of type T, returning a result of type R.
// If processing fails, it should return an error which will abort the whole call.
// The context is cancelled once any task of the same call has failed; long running
// functions should watch it.
//
// Type parameters:
//   - T: The type of input task to be processed
//   - R: The type of result produced after processing
type ProcessFunc[T any, R any] func(ctx context.Context, task T) (R, error)

// Result represents the outcome of processing a single task in the worker pool.
// It is a tagged variant: a nil Error is the success arm and Value is valid,
// a non-nil Error is the failure arm and Value is the zero value.
//
// Fields:
//   - Value: The result produced by processing the task (only valid if Error is nil)
//   - Error: Any error that occurred during task processing (nil if successful)
//   - Index: The original position of the task in the input slice
type Result[R any] struct {
	Value R
	Error error
	Index int
}

// OK reports whether the task succeeded.
func (r Result[R]) OK() bool {
	return r.Error == nil
}

// indexedTask wraps a task with its original index.
type indexedTask[T any] struct {
	index int
	task  T
}
