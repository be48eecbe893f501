package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWorkerPool_Process_ErrorIsReturnedUnchanged(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(4))

	expectedErr := errors.New("processing error")
	results, err := pool.Process(context.Background(), []int{1, 2, 3, 4, 5}, func(ctx context.Context, task int) (int, error) {
		if task == 3 {
			return 0, expectedErr
		}
		return task * 2, nil
	})

	if err != expectedErr {
		t.Fatalf("expected the original error value %v, got %v", expectedErr, err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %v", results)
	}
}

type valueError struct{ msg string }

func (e *valueError) Error() string { return e.msg }

func TestWorkerPool_Process_ErrorKindPreserved(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(3))

	_, err := pool.Process(context.Background(), []int{1, 2, 3}, func(ctx context.Context, task int) (int, error) {
		if task == 2 {
			return 0, &valueError{msg: "bad value 2"}
		}
		return task, nil
	})

	var ve *valueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *valueError, got %T: %v", err, err)
	}
	if ve.msg != "bad value 2" {
		t.Errorf("expected message %q, got %q", "bad value 2", ve.msg)
	}
}

func TestWorkerPool_Process_LowestIndexFailureWins(t *testing.T) {
	const n = 10
	pool := newTestPool[int, int](t, WithWorkerCount(n))

	errLow := errors.New("failure at 3")
	errHigh := errors.New("failure at 7")

	tasks := make([]int, n)
	for i := range tasks {
		tasks[i] = i
	}

	for range 20 {
		// every task waits until all of them are running, so both failures
		// happen inside the same call
		var started sync.WaitGroup
		started.Add(n)

		_, err := pool.Process(context.Background(), tasks, func(ctx context.Context, task int) (int, error) {
			started.Done()
			started.Wait()

			switch task {
			case 7:
				return 0, errHigh
			case 3:
				time.Sleep(5 * time.Millisecond)
				return 0, errLow
			}
			return task, nil
		})

		if err != errLow {
			t.Fatalf("expected lowest-index failure %v, got %v", errLow, err)
		}
	}
}

func TestWorkerPool_Process_CancellationOfSiblingsIsNotReported(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(2))

	expectedErr := errors.New("task 1 failed")
	_, err := pool.Process(context.Background(), []int{0, 1}, func(ctx context.Context, task int) (int, error) {
		if task == 0 {
			// only returns once the call is aborted
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 0, expectedErr
	})

	if err != expectedErr {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
}

func TestWorkerPool_Process_SkipsTasksAfterFailure(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(1))

	tasks := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	var calls atomic.Int32

	_, err := pool.Process(context.Background(), tasks, func(ctx context.Context, task int) (int, error) {
		calls.Add(1)
		if task == 2 {
			return 0, fmt.Errorf("error on task %d", task)
		}
		return task, nil
	})

	if err == nil || err.Error() != "error on task 2" {
		t.Fatalf("expected 'error on task 2', got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 invocations before the abort, got %d", calls.Load())
	}
}

func TestWorkerPool_Process_PanicRecovery(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(2))

	_, err := pool.Process(context.Background(), []int{1, 2, 3}, func(ctx context.Context, task int) (int, error) {
		if task == 2 {
			panic("boom")
		}
		return task, nil
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %T: %v", err, err)
	}
	if pe.Value != "boom" {
		t.Errorf("expected panic value %q, got %v", "boom", pe.Value)
	}
	if !strings.Contains(err.Error(), "worker panic: boom") {
		t.Errorf("unexpected message: %v", err)
	}
	if len(pe.Stack) == 0 {
		t.Error("expected a stack trace")
	}
}

func TestWorkerPool_Process_PanicWithErrorUnwraps(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(2))

	sentinel := errors.New("sentinel")
	_, err := pool.Process(context.Background(), []int{1}, func(ctx context.Context, task int) (int, error) {
		panic(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected panic error to unwrap to sentinel, got %v", err)
	}
}

func TestWorkerPool_Process_NilFunction(t *testing.T) {
	pool := newTestPool[int, int](t)

	_, err := pool.Process(context.Background(), []int{1, 2}, nil)
	if !errors.Is(err, ErrInvalidCallable) {
		t.Errorf("expected ErrInvalidCallable, got %v", err)
	}
}

func TestWorkerPool_Process_MaxTasks(t *testing.T) {
	pool := newTestPool[int, int](t, WithMaxTasks(3))

	var calls atomic.Int32
	fn := func(ctx context.Context, task int) (int, error) {
		calls.Add(1)
		return task, nil
	}

	if _, err := pool.Process(context.Background(), []int{1, 2, 3}, fn); err != nil {
		t.Fatalf("input at the cap should pass, got %v", err)
	}

	calls.Store(0)
	_, err := pool.Process(context.Background(), []int{1, 2, 3, 4}, fn)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no work before validation failure, got %d calls", calls.Load())
	}
}

func TestWorkerPool_Process_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	wp := newTestPool[int, int](t, WithWorkerCount(1), WithLogger(logger))

	_, err := wp.Process(context.Background(), []int{0, 1, 2}, func(ctx context.Context, task int) (int, error) {
		if task == 1 {
			return 0, errors.New("bad task")
		}
		return task, nil
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	out := buf.String()
	for _, want := range []string{`"message":"pool started"`, `"message":"pool aborted"`, `"index":1`, `"error":"bad task"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %s, got:\n%s", want, out)
		}
	}
}

func TestWorkerPool_Process_CanceledAsFirstFailureIsReported(t *testing.T) {
	pool := newTestPool[int, int](t, WithWorkerCount(2))

	errLater := errors.New("task 1 failed later")
	for range 10 {
		_, err := pool.Process(context.Background(), []int{0, 1}, func(ctx context.Context, task int) (int, error) {
			if task == 0 {
				// fails on its own, before anything else has failed
				return 0, context.Canceled
			}
			time.Sleep(20 * time.Millisecond)
			return 0, errLater
		})

		if err != context.Canceled {
			t.Fatalf("expected the lower-index context.Canceled, got %v", err)
		}
	}
}
