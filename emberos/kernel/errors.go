package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is returned by Post when the event queue has no free slot.
	// The event is not queued; Stats().Dropped counts it.
	ErrQueueFull = errors.New("kernel: event queue full")

	// ErrInvalidProcessState is the parent of every error caused by a
	// process being in the wrong lifecycle state for the operation.
	ErrInvalidProcessState = errors.New("kernel: invalid process state")

	ErrAlreadyStarted = fmt.Errorf("%w: already started", ErrInvalidProcessState)
	ErrNotRunning     = fmt.Errorf("%w: not running", ErrInvalidProcessState)
	ErrProcessExited  = fmt.Errorf("%w: exited", ErrInvalidProcessState)

	ErrNoProcess    = errors.New("kernel: no such process")
	ErrTableFull    = errors.New("kernel: process table full")
	ErrNoThread     = errors.New("kernel: process has no thread")
	ErrNoEventKinds = errors.New("kernel: event kinds exhausted")
	ErrTooManyWatch = errors.New("kernel: too many exit watchers")
)
