// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"errors"
	"fmt"
)

// Sentinel scheduler-level errors. These are raised synchronously at the
// call site named in their doc comment. Scheduler.Run returns only
// ErrAlreadyRunning of these; a user task's failure is captured on its
// TaskHandle rather than propagated.
var (
	// ErrInvalidContext is returned by Sleep, Channel.Send,
	// Channel.Receive and Select (in SelectResult.Err) when called outside
	// of a running task body. Yield outside a task body is a no-op instead.
	ErrInvalidContext = errors.New("corun: sleep/yield called outside a running task")

	// ErrAlreadyRunning is returned by Scheduler.Run when called
	// re-entrantly, either concurrently or from within a task body on the
	// same scheduler.
	ErrAlreadyRunning = errors.New("corun: scheduler is already running")

	// ErrInvalidArgument is returned by Select when given an empty case
	// list and no default case — there would be nothing for it to ever
	// do.
	ErrInvalidArgument = errors.New("corun: select requires at least one case")
)

// SendOnClosedError is returned by Channel.Send on a closed channel, and
// delivered to any sender already queued at the moment Channel.Close is
// called.
type SendOnClosedError struct {
	// ChannelID is the stable identity of the channel that was closed.
	ChannelID uint64
}

func (e *SendOnClosedError) Error() string {
	return fmt.Sprintf("corun: send on closed channel %d", e.ChannelID)
}

// CancelledError is delivered to a suspended primitive (Sleep, Channel.Send,
// Channel.Receive, Select) when the owning task's TaskHandle.Cancel is
// invoked while it is suspended there.
type CancelledError struct {
	// TaskID is the id of the task whose suspension was interrupted.
	TaskID uint64
	// Cause is the reason passed to TaskHandle.Cancel, if any.
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corun: task %d cancelled: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("corun: task %d cancelled", e.TaskID)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// wrapf is a thin fmt.Errorf wrapper kept as a named function so call sites
// read like the rest of the error taxonomy rather than ad-hoc fmt.Errorf
// calls.
func wrapf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
