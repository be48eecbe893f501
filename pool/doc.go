// Package pool provides a small, generic, per-call worker pool for
// data-parallel processing of a slice.
//
// The primary type is WorkerPool[T, R], a configurable pool of workers which
// process tasks of type T and return results of type R in input order. The
// pool holds configuration only: every Process call starts its own workers
// and joins all of them before returning, on success and on failure.
//
// # Basic Usage
//
//	ctx := context.Background()
//	tasks := []int{1, 2, 3, 4}
//	wp, err := NewWorkerPool[int, int](WithWorkerCount(4))
//	if err != nil {
//	    return err
//	}
//	results, err := wp.Process(ctx, tasks, func(ctx context.Context, t int) (int, error) {
//	    return t * 2, nil
//	})
//
// # Validation
//
// Problems with the call itself are reported before any worker starts and
// can be matched with errors.Is:
//
//   - ErrInvalidInput: the input exceeds the WithMaxTasks cap
//   - ErrInvalidCallable: a nil process function or a mistyped hook
//   - ErrInvalidConfig: a non-positive worker count, negative buffer, bad rate limit
//
// # Error Handling
//
// The pool uses fail-fast semantics: when any task fails, tasks that have not
// started are skipped, the context passed to running tasks is cancelled, and
// Process returns the failing task's error unchanged together with nil
// results. If several tasks fail, the error of the lowest task index is
// returned. A panic inside the process function is recovered and reported as
// a *PanicError carrying the stack trace.
//
// # Configuration Options
//
//   - WithWorkerCount(n): Set number of concurrent workers (default: logical CPUs)
//   - WithTaskBuffer(n): Set task channel buffer size (default: worker count)
//   - WithMaxTasks(n): Reject inputs longer than n
//   - WithRateLimit(tasksPerSecond, burst): Throttle task starts
//   - WithCPUAffinity(true): Pin each worker to a CPU core
//   - WithLogger(logger), WithTracer(tracer): Observability
//   - WithBeforeTaskStart(fn), WithOnTaskEnd(fn): Per-task hooks
package pool
