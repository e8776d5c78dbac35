// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"iter"
	"sync/atomic"
)

var nextChannelID uint64

// waiter is the bookkeeping record enqueued on a channel's send or receive
// queue: a task, the scheduler it belongs to, and (for a send waiter) the
// value it is trying to deliver.
//
// sel is non-nil when this waiter shadows a Select case: the channel must
// then test-and-set the select's claim before acting on the waiter, so
// that at most one case of a select ever actually fires.
type waiter[T any] struct {
	task    *task
	sched   *Scheduler
	value   T // meaningful only for send waiters
	sel     *selectWaiter
	caseIdx int
}

// live reports whether this waiter may still be used by a channel, and, if
// it shadows a Select, claims it as a side effect. Only call this at the
// point a waiter is actually about to be acted upon (dropStaleRecv,
// dropStaleSend): a speculative readiness check must use isLive instead,
// or it would wrongly claim — and so poison — a select it never commits
// to.
func (w *waiter[T]) live() bool {
	return w.sel == nil || w.sel.tryClaim(w.caseIdx)
}

// isLive is the non-mutating liveness peek used by readiness scans.
func (w *waiter[T]) isLive() bool {
	return w.sel == nil || !w.sel.claimed
}

// Channel is an ordered, optionally buffered, single-type message queue
// with FIFO send and receive wait queues.
type Channel[T any] struct {
	id       uint64
	capacity int
	buf      []T
	closed   bool
	sendQ    []*waiter[T]
	recvQ    []*waiter[T]
}

// NewChannel creates a channel with the given buffer capacity. Capacity 0
// is a rendezvous channel: a send only completes once a receiver is ready
// for it.
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Channel[T]{
		id:       atomic.AddUint64(&nextChannelID, 1),
		capacity: capacity,
	}
}

// ID returns the channel's stable identity.
func (c *Channel[T]) ID() uint64 { return c.id }

// Capacity returns the channel's buffer capacity.
func (c *Channel[T]) Capacity() int { return c.capacity }

// Len returns the number of buffered values currently queued.
func (c *Channel[T]) Len() int { return len(c.buf) }

// IsClosed reports whether Close has been called.
func (c *Channel[T]) IsClosed() bool { return c.closed }

// dropStaleRecv discards receive-queue waiters shadowing an already
// completed select, returning the first live one or nil.
func (c *Channel[T]) dropStaleRecv() *waiter[T] {
	for len(c.recvQ) > 0 {
		w := c.recvQ[0]
		c.recvQ = c.recvQ[1:]
		if w.live() {
			return w
		}
	}
	return nil
}

func (c *Channel[T]) dropStaleSend() *waiter[T] {
	for len(c.sendQ) > 0 {
		w := c.sendQ[0]
		c.sendQ = c.sendQ[1:]
		if w.live() {
			return w
		}
	}
	return nil
}

// readySend reports whether a send would complete without blocking: a live
// receiver waiting, buffer space, or the channel is closed (in which case
// the send completes immediately, with *SendOnClosedError, rather than
// ever queuing — callers must route a true result here through the same
// closed check Channel.Send itself performs, e.g. sendCase.doImmediate).
func (c *Channel[T]) readySend() bool {
	if c.closed {
		return true
	}
	if len(c.buf) < c.capacity {
		return true
	}
	for _, w := range c.recvQ {
		if w.isLive() {
			return true
		}
	}
	return false
}

// readyRecv reports whether a receive would complete without blocking: a
// non-empty buffer, a live sender waiting, or the channel is closed.
func (c *Channel[T]) readyRecv() bool {
	if len(c.buf) > 0 || c.closed {
		return true
	}
	for _, w := range c.sendQ {
		if w.isLive() {
			return true
		}
	}
	return false
}

// Send delivers v on the channel:
//
//   - If the channel is closed, fails immediately with *SendOnClosedError.
//   - Else if a live receiver is waiting, it is woken and run inline, to its
//     own next suspension or completion, before Send returns — this is the
//     fast, non-blocking rendezvous path.
//   - Else if there is buffer space, v is buffered and Send returns
//     immediately.
//   - Else Send suspends the calling task until a receiver arrives, the
//     channel gains buffer space, or the channel is closed (in which case
//     it fails with *SendOnClosedError).
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	s, t, ok := taskFromContext(ctx)
	if !ok {
		return ErrInvalidContext
	}

	if c.closed {
		return &SendOnClosedError{ChannelID: c.id}
	}

	if w := c.dropStaleRecv(); w != nil {
		// The receiver must observe delivery and run to its next suspension
		// before Send returns, so it is dispatched inline rather than
		// deferred to a later step.
		inlineRecv(s, w, v, true)
		return nil
	}

	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, v)
		return nil
	}

	return suspendOnChannel(s, t, func(w *waiter[T]) {
		w.value = v
		c.sendQ = append(c.sendQ, w)
	}, func() { c.removeSendWaiter(t) })
}

// Receive takes the next value from the channel. ok is false only when the
// channel is closed and drained: a sentinel signal, not an error. err is
// non-nil only when ctx does not carry a task, or the calling task is
// cancelled while suspended here.
func (c *Channel[T]) Receive(ctx context.Context) (value T, ok bool, err error) {
	s, t, present := taskFromContext(ctx)
	if !present {
		var zero T
		return zero, false, ErrInvalidContext
	}

	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		if w := c.dropStaleSend(); w != nil {
			c.buf = append(c.buf, w.value)
			deferSend(s, w)
		}
		return v, true, nil
	}

	if w := c.dropStaleSend(); w != nil {
		deferSend(s, w)
		return w.value, true, nil
	}

	if c.closed {
		var zero T
		return zero, false, nil
	}

	var zero T
	var result recvResult[T]
	suspendErr := suspendOnChannel(s, t, func(w *waiter[T]) {
		c.recvQ = append(c.recvQ, w)
		t.channelResult = &result
	}, func() { c.removeRecvWaiter(t) })
	if suspendErr != nil {
		return zero, false, suspendErr
	}
	return result.value, result.ok, nil
}

// Close is idempotent. It rejects every queued sender with
// *SendOnClosedError and resolves every queued receiver with (zero value,
// false), in FIFO order.
func (c *Channel[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true

	sendQ := c.sendQ
	c.sendQ = nil
	for _, w := range sendQ {
		if w.live() {
			deferSendRejected(w.sched, w, &SendOnClosedError{ChannelID: c.id})
		}
	}

	recvQ := c.recvQ
	c.recvQ = nil
	for _, w := range recvQ {
		if w.live() {
			var zero T
			deferRecv(w.sched, w, zero, false)
		}
	}
}

// Iterate returns a range-over-func sequence that yields successive
// Receive results until the channel is closed and drained, the calling
// task is cancelled, or ctx does not carry a task.
func (c *Channel[T]) Iterate(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, err := c.Receive(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

func (c *Channel[T]) removeSendWaiter(t *task) {
	for i, w := range c.sendQ {
		if w.task == t {
			c.sendQ = append(c.sendQ[:i], c.sendQ[i+1:]...)
			return
		}
	}
}

func (c *Channel[T]) removeRecvWaiter(t *task) {
	for i, w := range c.recvQ {
		if w.task == t {
			c.recvQ = append(c.recvQ[:i], c.recvQ[i+1:]...)
			return
		}
	}
}

// recvResult carries a deferred receive outcome back across the
// suspend/resume boundary, stashed on the task since resumer.resolve takes
// no payload of its own.
type recvResult[T any] struct {
	value T
	ok    bool
}
