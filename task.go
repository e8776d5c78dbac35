// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
)

// Priority is the dispatch priority of a task. Smaller values are higher
// priority: High runs before Normal, Normal before Low, within each of the
// new and resume ready-queue tiers.
type Priority int

const (
	High Priority = iota
	Normal
	Low

	numPriorities = Low + 1
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	default:
		return "invalid"
	}
}

// State is the lifecycle state of a Task.
type State int

const (
	Pending State = iota
	Running
	Sleeping
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Body is the user-supplied computation run by a spawned task. Its only
// legal suspension points are the package's cooperative primitives: Sleep,
// Yield, Channel.Send, Channel.Receive, and Select. ctx is cancelled when a
// cancellation requested through the task's TaskHandle is applied, or when
// the context passed to Scheduler.Run is cancelled.
type Body func(ctx context.Context) (result any, err error)

// resumer is the one-shot completion primitive a suspended task waits on.
// Exactly one of resolve or reject is ever called, exactly once.
type resumer struct {
	done chan struct{}
	err  error
}

func newResumer() *resumer {
	return &resumer{done: make(chan struct{})}
}

// resolve wakes the waiting task with no error. Safe to call at most once.
func (r *resumer) resolve() { close(r.done) }

// reject wakes the waiting task with err (typically a *CancelledError or
// *SendOnClosedError). Safe to call at most once.
func (r *resumer) reject(err error) {
	r.err = err
	close(r.done)
}

// task is the scheduler's internal record for a spawned Body. The exported
// TaskHandle is a narrow view over it.
type task struct {
	id       uint64
	priority Priority
	state    State
	started  bool

	body Body

	// wakeTime is only meaningful while state == Sleeping.
	wakeTime uint64
	// seq is the insertion sequence, used to break wakeTime ties in the
	// sleep queue. The ready-queue tiers are FIFO lists and do not use it.
	seq uint64

	// sched is the owning Scheduler, stashed on the task so channel and
	// select code that only has a *waiter can still reach it.
	sched *Scheduler

	// resume is non-nil while the task is suspended on Sleep, Yield,
	// Channel.Send/Receive, or Select; the scheduler calls resolve/reject
	// on it to hand control back to the task's goroutine.
	resume *resumer

	// onCancelRemove, when non-nil, splices the task out of whatever
	// sleep, channel, or select wait structure currently holds it. Set by
	// whichever suspend site installed the wait, cleared on resume.
	onCancelRemove func()

	// channelResult holds a pointer to a recvResult[T] for the duration of
	// a suspended Channel.Receive, so the resolving sender can write the
	// delivered value and ok flag back without the scheduler needing to
	// know T.
	channelResult any

	cancelled   bool
	cancelCause error

	// pendingErr carries the error a deferred channel resolution decided
	// for this task (e.g. *SendOnClosedError) across to the step that
	// actually dispatches it and rejects its resumer.
	pendingErr error

	// ctx is this task's own cancellable context, derived from the
	// Scheduler's root context at first dispatch (see runOneTurn) and
	// passed to body from then on. Nil until the task has started.
	ctx context.Context
	// cancel tears down ctx; invoked by TaskHandle.Cancel.
	cancel context.CancelCauseFunc

	result any
	err    error

	// heapIndex is maintained by the sleep queue's container/heap.Interface
	// implementation so cancellation can remove a sleeping task in
	// O(log n) instead of a linear scan.
	heapIndex int
}

// TaskHandle is returned by Scheduler.Spawn. Cancel, State, Result, and Err
// are safe to call from any goroutine: State, Result and Err read through
// the owning Scheduler's mutex, and Cancel records its request in the
// Scheduler's separately locked cancel queue (see the package doc's
// Concurrency model section).
type TaskHandle struct {
	t *task
	s *Scheduler
}

// ID returns the task's stable, monotonically assigned identifier.
func (h *TaskHandle) ID() uint64 { return h.t.id }

// State returns the task's current lifecycle state.
func (h *TaskHandle) State() State {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.t.state
}

// Result returns the value returned by the task body. It is only meaningful
// once State() reports Completed.
func (h *TaskHandle) Result() any {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.t.result
}

// Err returns the task's terminal error, if any. It is only meaningful once
// State() reports Completed or Cancelled.
func (h *TaskHandle) Err() error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.t.err
}

// Cancel requests cancellation of the task:
//
//   - If the task is already terminal (Completed or Cancelled), Cancel is a
//     no-op.
//   - Otherwise the task is removed from whatever ready or sleep queue it
//     occupies; if it is suspended on a resumer, that resumer is rejected
//     with a *CancelledError; the task's state becomes Cancelled and it is
//     removed from the task table.
//
// Cancel may be called from any goroutine. The actual queue surgery always
// happens on the scheduler's own goroutine: Cancel only records the request
// under a mutex and lets the scheduler apply it the next time it is not
// itself running a task body, rather than touching ready-queue state
// directly from the calling goroutine.
//
// Cancellation is cooperative: code already running synchronously in the
// task body (including code that calls Cancel on itself) completes until
// its next suspension point, at which point the suspended primitive fails
// with *CancelledError.
func (h *TaskHandle) Cancel() { h.s.requestCancel(h.t, nil) }

// CancelCause is Cancel, but records cause as the CancelledError's Cause
// and as the error context.Context.Cause returns once the task's ctx is
// torn down.
func (h *TaskHandle) CancelCause(cause error) { h.s.requestCancel(h.t, cause) }
