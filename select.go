// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import "context"

// selectCaseOps is the uniformly-typed view of a SelectCase that Select
// actually drives. Go generics can't express a heterogeneous slice of
// Channel[T] cases directly, so every case constructor (RecvCase,
// SendCase) closes over its own T and exposes only this untyped shape.
type selectCaseOps struct {
	ready    func() bool
	commit   func() (value any, ok bool, err error)
	register func(sw *selectWaiter, idx int) (cancel func())
}

// SelectCase is one arm of a Select call. Build cases with RecvCase and
// SendCase; the interface has no exported methods, so only those two
// constructors can produce a valid case.
type SelectCase interface {
	selectOps() selectCaseOps
}

// selectWaiter is shared by every shadow waiter registered for one Select
// call. Exactly one case may ever claim it: tryClaim performs the
// test-and-set that gives Select its exclusivity guarantee, and lets
// channels recognize and discard stale waiters belonging to a select that
// already resolved through a different case.
type selectWaiter struct {
	claimed     bool
	claimedIdx  int
	task        *task
	resultValue any
	resultOK    bool
}

func (sw *selectWaiter) tryClaim(idx int) bool {
	if sw.claimed {
		return false
	}
	sw.claimed = true
	sw.claimedIdx = idx
	return true
}

type recvCase[T any] struct{ ch *Channel[T] }

// RecvCase builds a Select case that completes when a value (or channel
// closure) is available from ch.
func RecvCase[T any](ch *Channel[T]) SelectCase { return recvCase[T]{ch: ch} }

func (c recvCase[T]) doImmediate() (value any, ok bool) {
	if len(c.ch.buf) > 0 {
		v := c.ch.buf[0]
		c.ch.buf = c.ch.buf[1:]
		if w := c.ch.dropStaleSend(); w != nil {
			c.ch.buf = append(c.ch.buf, w.value)
			deferSend(w.sched, w)
		}
		return v, true
	}
	if w := c.ch.dropStaleSend(); w != nil {
		deferSend(w.sched, w)
		return w.value, true
	}
	var zero T
	return zero, false
}

func (c recvCase[T]) selectOps() selectCaseOps {
	return selectCaseOps{
		ready: c.ch.readyRecv,
		commit: func() (any, bool, error) {
			v, ok := c.doImmediate()
			return v, ok, nil
		},
		register: func(sw *selectWaiter, idx int) func() {
			w := &waiter[T]{task: sw.task, sched: sw.task.sched, sel: sw, caseIdx: idx}
			c.ch.recvQ = append(c.ch.recvQ, w)
			return func() { c.ch.removeRecvWaiter(sw.task) }
		},
	}
}

type sendCase[T any] struct {
	ch *Channel[T]
	v  T
}

// SendCase builds a Select case that completes when v can be delivered on
// ch without blocking.
func SendCase[T any](ch *Channel[T], v T) SelectCase { return sendCase[T]{ch: ch, v: v} }

func (c sendCase[T]) doImmediate() error {
	if c.ch.closed {
		return &SendOnClosedError{ChannelID: c.ch.id}
	}
	if w := c.ch.dropStaleRecv(); w != nil {
		// As with Channel.Send, the receiver must run before this call
		// returns, so it is woken inline rather than deferred.
		inlineRecv(w.sched, w, c.v, true)
		return nil
	}
	c.ch.buf = append(c.ch.buf, c.v)
	return nil
}

func (c sendCase[T]) selectOps() selectCaseOps {
	return selectCaseOps{
		ready: c.ch.readySend,
		commit: func() (any, bool, error) {
			return nil, true, c.doImmediate()
		},
		register: func(sw *selectWaiter, idx int) func() {
			w := &waiter[T]{task: sw.task, sched: sw.task.sched, value: c.v, sel: sw, caseIdx: idx}
			c.ch.sendQ = append(c.ch.sendQ, w)
			return func() { c.ch.removeSendWaiter(sw.task) }
		},
	}
}

// SelectResult describes the outcome of a Select call.
type SelectResult struct {
	// Index is the winning case's position in the cases slice, or -1 if the
	// default case fired or the select failed while suspended or before it
	// could start (see Err). A send case that fails on the fast path keeps
	// its own index.
	Index int
	// Value holds the received value for a winning receive case (nil for a
	// send case or the default case). Callers type-assert it back to T.
	Value any
	// OK is false only when the winning receive case observed channel
	// closure. Always true for send cases and the default case.
	OK bool
	// Err is ErrInvalidContext if ctx carries no task, ErrInvalidArgument
	// if there are no cases and no default, a *SendOnClosedError if a send
	// case meets a closed channel (immediately, or while suspended), or a
	// *CancelledError if the calling task was cancelled while suspended.
	Err error
}

// Select evaluates cases in declaration order:
//
//   - With no cases and no default, Select fails immediately with
//     ErrInvalidArgument; there is nothing it could ever do.
//   - Fast path: if any case is immediately satisfiable, the first such
//     case (by declaration order) is committed synchronously, without the
//     calling task ever suspending.
//   - If none are ready and hasDefault is true, the default case fires
//     immediately with Index == -1, OK == true.
//   - Else the calling task registers a shadow waiter on every case's
//     channel and suspends. Whichever channel operation claims the shared
//     waiter first wins; every other shadow waiter becomes stale. A channel
//     that reaches a stale waiter discards it unacted upon, and Select
//     removes all of its waiters from their channels once it resumes.
func Select(ctx context.Context, hasDefault bool, cases ...SelectCase) SelectResult {
	s, t, ok := taskFromContext(ctx)
	if !ok {
		return SelectResult{Index: -1, Err: ErrInvalidContext}
	}

	if len(cases) == 0 && !hasDefault {
		return SelectResult{Index: -1, Err: ErrInvalidArgument}
	}

	ops := make([]selectCaseOps, len(cases))
	for i, c := range cases {
		ops[i] = c.selectOps()
	}

	for i, op := range ops {
		if op.ready() {
			v, okRecv, err := op.commit()
			return SelectResult{Index: i, Value: v, OK: okRecv, Err: err}
		}
	}

	if hasDefault {
		return SelectResult{Index: -1, OK: true}
	}

	sw := &selectWaiter{task: t}
	cancels := make([]func(), len(ops))
	for i, op := range ops {
		cancels[i] = op.register(sw, i)
	}

	err := s.suspendOnSelect(t, sw)

	for _, cancel := range cancels {
		cancel()
	}

	if err != nil {
		return SelectResult{Index: -1, Err: err}
	}
	return SelectResult{Index: sw.claimedIdx, Value: sw.resultValue, OK: sw.resultOK}
}
