package pool

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/utkarsh5026/parmap/internal/cpu"
)

const tracerName = "github.com/utkarsh5026/parmap/pool"

// processorConfig is the typed form of workerPoolConfig, fixed for the
// lifetime of one WorkerPool.
type processorConfig[T, R any] struct {
	workerCount    int
	taskBuffer     int
	maxTasks       int
	cpuAffinity    bool
	tasksPerSecond float64
	burst          int

	logger zerolog.Logger
	tracer trace.Tracer

	beforeTaskStart func(T)
	onTaskEnd       func(T, R, error)
}

// checkHooks asserts user-supplied hook functions against the pool's task
// and result types and returns them in typed form.
//
// Returns:
//   - beforeTaskStart: Function to be called before each task starts (or nil if not configured).
//   - onTaskEnd: Function to be called after each task ends (or nil if not configured).
//   - err: ErrInvalidCallable when a hook was registered for other types.
func checkHooks[T any, R any](cfg *workerPoolConfig) (
	beforeTaskStart func(T),
	onTaskEnd func(T, R, error),
	err error,
) {
	if cfg.beforeTaskStart != nil {
		fn, ok := cfg.beforeTaskStart.(func(T))
		if !ok {
			return nil, nil, fmt.Errorf("%w: WithBeforeTaskStart hook is %T, but pool processes type %s",
				ErrInvalidCallable, cfg.beforeTaskStart, typeName[T]())
		}
		beforeTaskStart = fn
	}

	if cfg.onTaskEnd != nil {
		fn, ok := cfg.onTaskEnd.(func(T, R, error))
		if !ok {
			return nil, nil, fmt.Errorf("%w: WithOnTaskEnd hook is %T, but pool processes %s into %s",
				ErrInvalidCallable, cfg.onTaskEnd, typeName[T](), typeName[R]())
		}
		onTaskEnd = fn
	}

	return beforeTaskStart, onTaskEnd, nil
}

// typeName renders T for error messages, including interface types whose
// zero value would otherwise print as <nil>.
func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}

// createConfig applies opts over the defaults, validates the result and
// resolves the worker count.
//
// Default configuration:
//   - workerCount: cpu.LogicalCount() (logical CPUs usable by the process)
//   - taskBuffer: equal to workerCount
//   - maxTasks: 0 (no cap)
//   - logger: zerolog.Nop()
//   - tracer: otel.Tracer(tracerName) from the global provider
func createConfig[T, R any](opts ...WorkerPoolOption) (*processorConfig[T, R], error) {
	cfg := &workerPoolConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	beforeTaskStart, onTaskEnd, err := checkHooks[T, R](cfg)
	if err != nil {
		return nil, err
	}

	workerCount := cfg.workerCount
	if !cfg.workerCountSet {
		workerCount = max(cpu.LogicalCount(), 1)
	}

	taskBuffer := cfg.taskBuffer
	if taskBuffer == 0 {
		taskBuffer = workerCount
	}

	logger := zerolog.Nop()
	if cfg.logger != nil {
		logger = *cfg.logger
	}

	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &processorConfig[T, R]{
		workerCount:     workerCount,
		taskBuffer:      taskBuffer,
		maxTasks:        cfg.maxTasks,
		cpuAffinity:     cfg.cpuAffinity,
		tasksPerSecond:  cfg.tasksPerSecond,
		burst:           cfg.burst,
		logger:          logger,
		tracer:          tracer,
		beforeTaskStart: beforeTaskStart,
		onTaskEnd:       onTaskEnd,
	}, nil
}
