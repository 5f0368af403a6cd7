package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidVolume     = errors.New("invalid volume")
	ErrUnschedulableTask = errors.New("unschedulable task")
	ErrExecutorFailure   = errors.New("executor failure")

	errNoExecutor = errors.New("no executor configured")
)

// ExecutorError wraps a failure reported by an executor. It matches
// ErrExecutorFailure with errors.Is and unwraps to the executor's error.
type ExecutorError struct {
	Category Category
	Op       Op
	Err      error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Category, e.Op, e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }

func (e *ExecutorError) Is(target error) bool { return target == ErrExecutorFailure }
