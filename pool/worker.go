package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/parmap/internal/cpu"
)

// stage holds the state of a single Process call. It is created per call
// and discarded when the call returns.
type stage[T, R any] struct {
	parent    context.Context
	conf      *processorConfig[T, R]
	tasks     []T
	processFn ProcessFunc[T, R]
	limiter   *rate.Limiter

	// set by the first worker that hits a task failure
	aborted atomic.Bool
}

func newStage[T, R any](
	ctx context.Context,
	conf *processorConfig[T, R],
	tasks []T,
	processFn ProcessFunc[T, R],
) *stage[T, R] {
	return &stage[T, R]{
		parent:    ctx,
		conf:      conf,
		tasks:     tasks,
		processFn: processFn,
		limiter:   conf.newRateLimiter(),
	}
}

// run starts numWorkers workers plus a producer, waits for all of them and
// assembles the ordered results. On failure it returns the chosen failing
// Result alongside its error.
func (s *stage[T, R]) run(numWorkers int) ([]R, *Result[R], error) {
	g, ctx := errgroup.WithContext(s.parent)

	taskChan := make(chan indexedTask[T], s.conf.taskBuffer)
	// sized so that workers never block on delivery
	resultChan := make(chan taskResult[R], len(s.tasks))

	for i := range numWorkers {
		g.Go(func() error {
			return s.worker(ctx, i, taskChan, resultChan)
		})
	}

	g.Go(func() error {
		defer close(taskChan)
		for idx, task := range s.tasks {
			select {
			case taskChan <- indexedTask[T]{index: idx, task: task}:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	// The reported failure is picked from the collected results below; the
	// group error only matters when tasks are missing without one.
	groupErr := g.Wait()
	close(resultChan)

	results := make([]R, len(s.tasks))
	var failure, noise *Result[R]
	received := 0

	for r := range resultChan {
		received++
		if r.OK() {
			results[r.Index] = r.Value
			continue
		}

		if r.noise {
			if noise == nil || r.Index < noise.Index {
				noise = &r.Result
			}
			continue
		}
		if failure == nil || r.Index < failure.Index {
			failure = &r.Result
		}
	}

	if failure == nil {
		failure = noise
	}
	if failure != nil {
		return nil, failure, failure.Error
	}

	if received < len(s.tasks) {
		if err := s.parent.Err(); err != nil {
			return nil, nil, err
		}
		if groupErr != nil {
			return nil, nil, groupErr
		}
		return nil, nil, fmt.Errorf("pool: %d of %d tasks produced no result", len(s.tasks)-received, len(s.tasks))
	}

	return results, nil, nil
}

// taskResult is a Result plus whether it counts as abort noise.
type taskResult[R any] struct {
	Result[R]
	noise bool
}

// isAbortNoise reports whether err is a cancellation that only happened
// because another task of this call had already failed. It must be called
// before the task's own failure is recorded in s.aborted.
func (s *stage[T, R]) isAbortNoise(err error) bool {
	if !s.aborted.Load() || s.parent.Err() != nil {
		return false
	}
	return errors.Is(err, context.Canceled)
}

// worker pulls tasks until the channel is drained or the call is aborted.
// It returns the task's error on failure so that the errgroup cancels ctx.
func (s *stage[T, R]) worker(
	ctx context.Context,
	workerID int,
	taskChan <-chan indexedTask[T],
	resultChan chan<- taskResult[R],
) error {
	if s.conf.cpuAffinity {
		unpin, err := cpu.PinWorker(workerID)
		defer unpin()
		if err != nil {
			s.conf.logger.Debug().Err(err).Int("worker", workerID).Msg("cpu pinning failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case t, ok := <-taskChan:
			if !ok {
				return nil
			}
			// a task received after an abort is skipped
			if ctx.Err() != nil {
				return nil
			}

			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					// an aborted call just skips the task; a live one failed
					// because the wait would outlast the deadline
					if ctx.Err() != nil {
						return nil
					}
					resultChan <- taskResult[R]{Result: Result[R]{Error: err, Index: t.index}}
					s.aborted.CompareAndSwap(false, true)
					return err
				}
			}

			value, err := s.execute(ctx, t.task)
			resultChan <- taskResult[R]{
				Result: Result[R]{Value: value, Error: err, Index: t.index},
				noise:  err != nil && s.isAbortNoise(err),
			}

			if err != nil {
				if s.aborted.CompareAndSwap(false, true) {
					s.conf.logger.Debug().Err(err).Int("index", t.index).Int("worker", workerID).Msg("task failed, aborting")
				}
				return err
			}
		}
	}
}

// execute runs one task with the configured hooks around it.
func (s *stage[T, R]) execute(ctx context.Context, task T) (R, error) {
	if s.conf.beforeTaskStart != nil {
		if err := callWithRecovery(func() { s.conf.beforeTaskStart(task) }); err != nil {
			var zero R
			return zero, err
		}
	}

	result, err := processWithRecovery(ctx, task, s.processFn)

	if s.conf.onTaskEnd != nil {
		if hookErr := callWithRecovery(func() { s.conf.onTaskEnd(task, result, err) }); hookErr != nil && err == nil {
			var zero R
			return zero, hookErr
		}
	}

	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}

// processWithRecovery executes a task with panic recovery.
// If a panic occurs, it's converted to a *PanicError to prevent crashing the program.
func processWithRecovery[T, R any](
	ctx context.Context,
	task T,
	processFn ProcessFunc[T, R],
) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result, err = zero, newPanicError(r)
		}
	}()

	return processFn(ctx, task)
}

// callWithRecovery runs a hook and converts a panic into a *PanicError.
func callWithRecovery(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()

	fn()
	return nil
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: buf[:n]}
}
