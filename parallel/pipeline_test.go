package parallel

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/utkarsh5026/parmap/pool"
)

func plusOne(x int) int { return x + 1 }

func TestRunPipeline_SquareThenIncrement(t *testing.T) {
	out, err := RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{
		Adapt(square),
		Adapt(plusOne),
	}, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expected := []int{2, 5, 10}; !slices.Equal(out, expected) {
		t.Errorf("expected %v, got %v", expected, out)
	}
}

func TestRunPipeline_ComposesElementwise(t *testing.T) {
	items := make([]int, 300)
	for i := range items {
		items[i] = i
	}

	f1 := func(x int) int { return x*7 + 3 }
	f2 := func(x int) int { return x % 11 }

	out, err := RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{Adapt(f1), Adapt(f2)}, items, pool.WithWorkerCount(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, x := range items {
		if out[i] != f2(f1(x)) {
			t.Fatalf("position %d: expected %d, got %d", i, f2(f1(x)), out[i])
		}
	}
}

func TestRunPipeline_NoStagesIsIdentity(t *testing.T) {
	items := []int{4, 8, 15, 16, 23, 42}

	out, err := RunPipeline(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(out, items) {
		t.Errorf("expected %v, got %v", items, out)
	}

	// the result does not alias the input
	out[0] = -1
	if items[0] != 4 {
		t.Error("expected identity pipeline to return a copy")
	}
}

func TestRunPipeline_EmptyItems(t *testing.T) {
	var calls atomic.Int32
	count := func(ctx context.Context, x int) (int, error) {
		calls.Add(1)
		return x, nil
	}

	out, err := RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{count, count, count}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no invocations, got %d", calls.Load())
	}
}

func TestRunPipeline_FailureStopsLaterStages(t *testing.T) {
	stageErr := errors.New("stage 2 failed on 3")
	var thirdStageCalls atomic.Int32

	stages := []pool.ProcessFunc[int, int]{
		Adapt(plusOne),
		AdaptErr(func(x int) (int, error) {
			if x == 3 {
				return 0, stageErr
			}
			return x, nil
		}),
		func(ctx context.Context, x int) (int, error) {
			thirdStageCalls.Add(1)
			return x, nil
		},
	}

	out, err := RunPipeline(context.Background(), stages, []int{0, 1, 2, 3, 4})
	if err != stageErr {
		t.Fatalf("expected %v, got %v", stageErr, err)
	}
	if out != nil {
		t.Errorf("expected no results, got %v", out)
	}
	if thirdStageCalls.Load() != 0 {
		t.Errorf("expected later stage never to run, ran %d times", thirdStageCalls.Load())
	}
}

func TestRunPipeline_StagesDoNotOverlap(t *testing.T) {
	const n = 50
	var firstDone atomic.Int32
	var overlap atomic.Bool

	first := func(ctx context.Context, x int) (int, error) {
		firstDone.Add(1)
		return x, nil
	}
	second := func(ctx context.Context, x int) (int, error) {
		if firstDone.Load() != n {
			overlap.Store(true)
		}
		return x, nil
	}

	items := make([]int, n)
	if _, err := RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{first, second}, items, pool.WithWorkerCount(8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlap.Load() {
		t.Error("second stage started before the first stage completed")
	}
}

func TestRunPipeline_Validation(t *testing.T) {
	var calls atomic.Int32
	count := func(ctx context.Context, x int) (int, error) {
		calls.Add(1)
		return x, nil
	}

	_, err := RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{count, nil}, []int{1, 2})
	if !errors.Is(err, pool.ErrInvalidCallable) {
		t.Errorf("expected ErrInvalidCallable, got %v", err)
	}

	for _, n := range []int{0, -2} {
		_, err = RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{count}, []int{1, 2}, pool.WithWorkerCount(n))
		if !errors.Is(err, pool.ErrInvalidConfig) {
			t.Errorf("workers=%d: expected ErrInvalidConfig, got %v", n, err)
		}
	}

	_, err = RunPipeline(context.Background(), []pool.ProcessFunc[int, int]{count}, []int{1, 2, 3}, pool.WithMaxTasks(2))
	if !errors.Is(err, pool.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if calls.Load() != 0 {
		t.Errorf("expected no work before validation failures, got %d calls", calls.Load())
	}
}

func TestPipeline_Builder(t *testing.T) {
	p := NewPipeline[string](pool.WithWorkerCount(2)).
		Then("exclaim", Adapt(func(s string) string { return s + "!" })).
		Then("", Adapt(func(s string) string { return "<" + s + ">" }))

	if p.Len() != 2 {
		t.Fatalf("expected 2 stages, got %d", p.Len())
	}

	names := []string{}
	for _, st := range p.Stages() {
		names = append(names, st.Name)
	}
	if expected := []string{"exclaim", "stage-1"}; !slices.Equal(names, expected) {
		t.Errorf("expected stage names %v, got %v", expected, names)
	}

	// a pipeline can run more than once
	for range 2 {
		out, err := p.Run(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expected := []string{"<a!>", "<b!>"}; !slices.Equal(out, expected) {
			t.Errorf("expected %v, got %v", expected, out)
		}
	}
}

func TestPipeline_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p := NewPipeline[int](pool.WithWorkerCount(2), pool.WithTracer(tp.Tracer("test"))).
		Then("square", Adapt(square)).
		Then("inc", Adapt(plusOne))

	if _, err := p.Run(context.Background(), []int{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[string]int{}
	for _, s := range sr.Ended() {
		counts[s.Name()]++
	}

	expected := map[string]int{"parallel.Pipeline": 1, "parallel.Stage": 2, "pool.Process": 2}
	for name, n := range expected {
		if counts[name] != n {
			t.Errorf("expected %d %q spans, got %d", n, name, counts[name])
		}
	}
}
