package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a task sequence that cannot be processed,
	// such as a nil iterator or one longer than the configured cap.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCallable reports a nil process function or a hook whose
	// type does not match the pool.
	ErrInvalidCallable = errors.New("invalid callable")

	// ErrInvalidConfig reports an option value outside its allowed range.
	ErrInvalidConfig = errors.New("invalid config")
)

// PanicError is returned in place of a task's error when the process
// function panicked. The worker recovers, so the panic never crashes the
// caller's program.
type PanicError struct {
	Value any    // value passed to panic
	Stack []byte // stack of the panicking goroutine
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v\nstack trace:\n%s", e.Value, e.Stack)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
