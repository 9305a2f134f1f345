package furi

import (
	"errors"
	"fmt"

	"furi/kernel"
)

var (
	// ErrResourceExhausted means the kernel could not allocate the object.
	ErrResourceExhausted = errors.New("kernel resources exhausted")
	// ErrInvalidConfig means a parameter is outside the range the kernel accepts.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrRecordUnavailable means no record is published under the name.
	ErrRecordUnavailable = errors.New("record unavailable")
	// ErrNotOwner means a lock was released by a thread that does not hold it.
	ErrNotOwner = errors.New("lock not held by calling thread")
	// ErrWouldDeadlock means a thread tried to reacquire a non-recursive lock it holds.
	ErrWouldDeadlock = errors.New("lock already held by calling thread")
	// ErrAlreadyConsumed means a handle was used after join, detach, close or unlock.
	ErrAlreadyConsumed = errors.New("handle already consumed")
	// ErrClosed means the primitive was closed.
	ErrClosed = errors.New("use of closed primitive")
	// ErrBusy means the primitive cannot be closed while it is held or waited on.
	ErrBusy = errors.New("primitive in use")
	// ErrTimeout means a bounded wait expired.
	ErrTimeout = errors.New("timed out")
)

// StatusError reports a kernel status the wrapper has no mapping for.
type StatusError struct {
	Op     string
	Status kernel.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("furi: %s: kernel status %d (%s)", e.Op, int32(e.Status), e.Status)
}

// PanicError is returned by Join when the thread body panicked.
type PanicError struct {
	Thread string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	if e.Thread == "" {
		return fmt.Sprintf("furi: thread panicked: %v", e.Value)
	}
	return fmt.Sprintf("furi: thread %s panicked: %v", e.Thread, e.Value)
}

// fail wraps a sentinel with the failing operation.
func fail(op string, err error) error {
	return fmt.Errorf("furi: %s: %w", op, err)
}

// statusErr maps the common allocation statuses and falls back to StatusError.
func statusErr(op string, st kernel.Status) error {
	switch st {
	case kernel.StatusOK:
		return nil
	case kernel.StatusErrorNoMemory:
		return fail(op, ErrResourceExhausted)
	case kernel.StatusErrorParameter:
		return fail(op, ErrInvalidConfig)
	case kernel.StatusErrorTimeout:
		return fail(op, ErrTimeout)
	default:
		return &StatusError{Op: op, Status: st}
	}
}
