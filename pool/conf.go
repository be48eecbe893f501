package pool

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// WorkerPoolOption is a functional option for configuring the worker pool.
// Options only record what the caller asked for; the values are checked
// together by NewWorkerPool, so an invalid option surfaces as an error
// instead of being silently ignored.
type WorkerPoolOption func(*workerPoolConfig)

type workerPoolConfig struct {
	workerCount    int
	workerCountSet bool
	taskBuffer     int
	maxTasks       int
	cpuAffinity    bool

	rateLimitSet   bool
	tasksPerSecond float64
	burst          int

	logger *zerolog.Logger
	tracer trace.Tracer

	// hooks keep their caller-side types; checkHooks asserts them
	// against the pool's T and R
	beforeTaskStart any
	onTaskEnd       any
}

// WithWorkerCount sets the number of concurrent workers.
// If not specified, defaults to the number of logical CPUs the process may
// run on. A count of zero or less makes NewWorkerPool fail with
// ErrInvalidConfig.
func WithWorkerCount(count int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.workerCount = count
		cfg.workerCountSet = true
	}
}

// WithTaskBuffer sets the buffer size for the task channel.
// A larger buffer lets the producer run further ahead of the workers.
// If not specified, defaults to the number of workers.
func WithTaskBuffer(size int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.taskBuffer = size
	}
}

// WithMaxTasks caps the number of items a single call accepts.
// Inputs longer than n are rejected with ErrInvalidInput before any worker
// starts. Zero means no cap.
func WithMaxTasks(n int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.maxTasks = n
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks to start per second.
// burst specifies the maximum number of tasks that can start in a burst.
// The limiter is shared by all workers of one call.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.rateLimitSet = true
		cfg.tasksPerSecond = tasksPerSecond
		cfg.burst = burst
	}
}

// WithCPUAffinity pins every worker goroutine to its own OS thread and
// binds that thread to a CPU core for the duration of the call.
func WithCPUAffinity(enabled bool) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.cpuAffinity = enabled
	}
}

// WithLogger sets the logger used for pool lifecycle and failure events.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.logger = &logger
	}
}

// WithTracer sets the tracer used to record one span per Process call.
// The default is the tracer of the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.tracer = tracer
	}
}

// WithBeforeTaskStart registers a hook that runs on the worker goroutine
// right before each task. T must match the pool's task type, otherwise
// NewWorkerPool fails with ErrInvalidCallable.
func WithBeforeTaskStart[T any](fn func(T)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if fn != nil {
			cfg.beforeTaskStart = fn
		}
	}
}

// WithOnTaskEnd registers a hook that runs on the worker goroutine after each
// task with its result and error. T and R must match the pool's types.
func WithOnTaskEnd[T, R any](fn func(T, R, error)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if fn != nil {
			cfg.onTaskEnd = fn
		}
	}
}

// Config is the resolved, validated configuration of a WorkerPool.
type Config struct {
	// Number of worker goroutines started per call (upper bound; a call
	// never starts more workers than it has tasks).
	WorkerCount int

	// Size of the task channel between the producer and the workers.
	TaskBuffer int

	// Maximum accepted input length, 0 for unlimited.
	MaxTasks int

	// Whether workers pin themselves to CPU cores.
	CPUAffinity bool
}

// validateConfig checks the recorded options. It never touches the
// environment and has no side effects.
func validateConfig(cfg *workerPoolConfig) error {
	if cfg.workerCountSet && cfg.workerCount <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfig, cfg.workerCount)
	}

	if cfg.taskBuffer < 0 {
		return fmt.Errorf("%w: task buffer must not be negative, got %d", ErrInvalidConfig, cfg.taskBuffer)
	}

	if cfg.maxTasks < 0 {
		return fmt.Errorf("%w: max tasks must not be negative, got %d", ErrInvalidConfig, cfg.maxTasks)
	}

	if cfg.rateLimitSet && (cfg.tasksPerSecond <= 0 || cfg.burst <= 0) {
		return fmt.Errorf("%w: rate limit needs a positive rate and burst, got %g/s burst %d",
			ErrInvalidConfig, cfg.tasksPerSecond, cfg.burst)
	}

	return nil
}

// newRateLimiter builds a fresh token bucket for one call so that no
// limiter state survives between calls.
func (c *processorConfig[T, R]) newRateLimiter() *rate.Limiter {
	if c.tasksPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.tasksPerSecond), c.burst)
}
