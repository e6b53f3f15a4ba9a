package task

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipped matches every *SkipError via errors.Is.
	ErrSkipped = errors.New("task skipped")

	// ErrNoBody is returned when a task without a body is processed.
	ErrNoBody = errors.New("task has no body")

	// ErrNoLockStore is returned by overlap prevention when the execution
	// environment carries no lock store.
	ErrNoLockStore = errors.New("task: no lock store configured")
)

// SkipError is the skip signal. A before-handler returns it to stop a task
// before its body runs; the result is classified as skipped, never failed.
type SkipError struct {
	TaskID string
	Reason string
}

// NewSkipError returns the skip signal for t with a human-readable reason.
func NewSkipError(t *Task, reason string) *SkipError {
	e := &SkipError{Reason: reason}
	if t != nil {
		e.TaskID = t.ID()
	}
	return e
}

func (e *SkipError) Error() string {
	if e.Reason == "" {
		return ErrSkipped.Error()
	}
	return e.Reason
}

// Is reports whether target is ErrSkipped.
func (e *SkipError) Is(target error) bool {
	return target == ErrSkipped
}

// IsSkip reports whether err carries the skip signal.
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkipped)
}

// ExitError describes an external process or console command that exited
// with a nonzero status.
type ExitError struct {
	Code int
	Text string
}

func (e *ExitError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return fmt.Sprintf("exit %d: %s", e.Code, e.Text)
}
