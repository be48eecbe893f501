package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WorkerPool runs a process function over a slice of tasks with a bounded
// number of workers and returns the results in input order.
//
// A WorkerPool holds configuration only. Every call to Process starts its
// own workers and stops all of them before returning, so a WorkerPool is
// safe for concurrent use and nothing outlives a call.
//
// Type parameters:
//   - T: The input task type
//   - R: The result type
type WorkerPool[T any, R any] struct {
	conf *processorConfig[T, R]
}

// NewWorkerPool creates a new worker pool with the given options.
// It fails with ErrInvalidConfig for out-of-range option values and with
// ErrInvalidCallable for hooks registered for other task or result types.
//
// Example:
//
//	wp, err := NewWorkerPool[int, string](
//	    WithWorkerCount(10),
//	    WithTaskBuffer(20),
//	)
func NewWorkerPool[T any, R any](opts ...WorkerPoolOption) (*WorkerPool[T, R], error) {
	cfg, err := createConfig[T, R](opts...)
	if err != nil {
		return nil, err
	}
	return &WorkerPool[T, R]{conf: cfg}, nil
}

// Config returns the resolved configuration.
func (wp *WorkerPool[T, R]) Config() Config {
	return Config{
		WorkerCount: wp.conf.workerCount,
		TaskBuffer:  wp.conf.taskBuffer,
		MaxTasks:    wp.conf.maxTasks,
		CPUAffinity: wp.conf.cpuAffinity,
	}
}

// Logger returns the logger configured with WithLogger, or a no-op logger.
func (wp *WorkerPool[T, R]) Logger() zerolog.Logger {
	return wp.conf.logger
}

// Tracer returns the tracer configured with WithTracer, or the global one.
func (wp *WorkerPool[T, R]) Tracer() trace.Tracer {
	return wp.conf.tracer
}

// CheckInput reports whether n tasks are acceptable for this pool.
func (wp *WorkerPool[T, R]) CheckInput(n int) error {
	if wp.conf.maxTasks > 0 && n > wp.conf.maxTasks {
		return fmt.Errorf("%w: %d tasks exceed the limit of %d", ErrInvalidInput, n, wp.conf.maxTasks)
	}
	return nil
}

// Process executes a batch of tasks concurrently using a pool of workers.
// It processes all tasks in the slice and returns when all tasks are complete or a task failed.
//
// The process function is invoked exactly once per task unless the call is aborted.
// The first failure aborts the call: tasks that have not started are skipped, running
// tasks see their context cancelled, and every worker is joined before Process returns.
// The returned error is the one produced by the failing task, unchanged. When several
// tasks fail, the one with the lowest index wins. No results are returned on failure.
//
// Parameters:
//   - ctx: Context for cancellation control
//   - tasks: Slice of tasks to process
//   - processFn: Function to process each task (func(context.Context, T) (R, error))
//
// Returns:
//   - results: Slice of all results in the same order as input tasks
//   - error: The failing task's error, a validation error, or the context's error
//
// Example:
//
//	tasks := []int{1, 2, 3, 4, 5}
//	results, err := wp.Process(ctx, tasks, func(ctx context.Context, n int) (string, error) {
//	    return fmt.Sprintf("processed %d", n), nil
//	})
func (wp *WorkerPool[T, R]) Process(
	ctx context.Context,
	tasks []T,
	processFn ProcessFunc[T, R],
) ([]R, error) {
	if processFn == nil {
		return nil, fmt.Errorf("%w: process function is nil", ErrInvalidCallable)
	}
	if err := wp.CheckInput(len(tasks)); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []R{}, nil
	}

	numWorkers := min(wp.conf.workerCount, len(tasks))
	ctx, span := wp.conf.tracer.Start(ctx, "pool.Process", trace.WithAttributes(
		attribute.Int("pool.tasks", len(tasks)),
		attribute.Int("pool.workers", numWorkers),
	))
	defer span.End()

	log := wp.conf.logger.With().Int("tasks", len(tasks)).Int("workers", numWorkers).Logger()
	log.Debug().Msg("pool started")
	start := time.Now()

	s := newStage(ctx, wp.conf, tasks, processFn)
	results, failure, err := s.run(numWorkers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		ev := log.Debug().Err(err).Dur("elapsed", time.Since(start))
		if failure != nil {
			ev = ev.Int("index", failure.Index)
		}
		ev.Msg("pool aborted")
		return nil, err
	}

	log.Debug().Dur("elapsed", time.Since(start)).Msg("pool finished")
	return results, nil
}
