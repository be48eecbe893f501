package parallel

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utkarsh5026/parmap/pool"
)

// Stage is one step of a Pipeline: a function applied to every element.
type Stage[T any] struct {
	Name string
	Fn   pool.ProcessFunc[T, T]
}

// Pipeline chains parallel map stages over a slice. Each stage runs to
// completion across all elements before the next stage starts, and the
// first failing stage ends the run.
//
// A Pipeline is a description; Run may be called any number of times, also
// concurrently, as long as no stage is added meanwhile.
type Pipeline[T any] struct {
	stages []Stage[T]
	opts   []pool.WorkerPoolOption
}

// NewPipeline returns an empty pipeline whose stages run with opts.
func NewPipeline[T any](opts ...pool.WorkerPoolOption) *Pipeline[T] {
	return &Pipeline[T]{opts: opts}
}

// Then appends a stage and returns the pipeline for chaining.
// An empty name is replaced by the stage's position.
func (p *Pipeline[T]) Then(name string, fn pool.ProcessFunc[T, T]) *Pipeline[T] {
	if name == "" {
		name = fmt.Sprintf("stage-%d", len(p.stages))
	}
	p.stages = append(p.stages, Stage[T]{Name: name, Fn: fn})
	return p
}

// Len returns the number of stages.
func (p *Pipeline[T]) Len() int {
	return len(p.stages)
}

// Stages returns a copy of the configured stages.
func (p *Pipeline[T]) Stages() []Stage[T] {
	return slices.Clone(p.stages)
}

// RunPipeline applies stages to items in order, each stage through Map with
// the same options, and returns the output of the last stage.
//
// With no stages the input is returned unchanged (as a copy). With no items
// every stage sees an empty slice. All stages are checked before the first
// one runs; a nil stage fails with pool.ErrInvalidCallable.
func RunPipeline[T any](
	ctx context.Context,
	stages []pool.ProcessFunc[T, T],
	items []T,
	opts ...pool.WorkerPoolOption,
) ([]T, error) {
	p := NewPipeline[T](opts...)
	for _, fn := range stages {
		p.Then("", fn)
	}
	return p.Run(ctx, items)
}

// Run executes the pipeline over items.
func (p *Pipeline[T]) Run(ctx context.Context, items []T) ([]T, error) {
	for i, st := range p.stages {
		if st.Fn == nil {
			return nil, fmt.Errorf("%w: stage %d (%s) is nil", pool.ErrInvalidCallable, i, st.Name)
		}
	}

	// one validated configuration serves every stage; each Process call
	// still starts and stops its own workers
	wp, err := pool.NewWorkerPool[T, T](p.opts...)
	if err != nil {
		return nil, err
	}
	if err := wp.CheckInput(len(items)); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := wp.Logger().With().Str("run_id", runID).Int("stages", len(p.stages)).Logger()

	ctx, span := wp.Tracer().Start(ctx, "parallel.Pipeline", trace.WithAttributes(
		attribute.String("pipeline.run_id", runID),
		attribute.Int("pipeline.stages", len(p.stages)),
		attribute.Int("pipeline.items", len(items)),
	))
	defer span.End()

	output := slices.Clone(items)
	if output == nil {
		output = []T{}
	}

	for i, st := range p.stages {
		next, err := p.runStage(ctx, wp, i, st, output)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Debug().Err(err).Int("stage", i).Str("name", st.Name).Msg("pipeline aborted")
			return nil, err
		}
		output = next
	}

	log.Debug().Int("items", len(output)).Msg("pipeline finished")
	return output, nil
}

func (p *Pipeline[T]) runStage(
	ctx context.Context,
	wp *pool.WorkerPool[T, T],
	index int,
	st Stage[T],
	input []T,
) ([]T, error) {
	ctx, span := wp.Tracer().Start(ctx, "parallel.Stage", trace.WithAttributes(
		attribute.Int("stage.index", index),
		attribute.String("stage.name", st.Name),
	))
	defer span.End()

	start := time.Now()
	out, err := wp.Process(ctx, input, st.Fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	log := wp.Logger()
	log.Debug().
		Int("stage", index).
		Str("name", st.Name).
		Dur("elapsed", time.Since(start)).
		Msg("stage finished")
	return out, nil
}
