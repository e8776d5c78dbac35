// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"sync"
)

var (
	defaultScheduler     *Scheduler
	defaultSchedulerOnce sync.Once
)

// DefaultScheduler returns a lazily-constructed, process-wide Scheduler,
// for callers that want an ambient instance rather than threading one
// through explicitly. Package tests always construct their own Scheduler
// via NewScheduler instead, so that test cases stay isolated from one
// another.
func DefaultScheduler() *Scheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewScheduler(WithName("default"))
	})
	return defaultScheduler
}

// ErrDeadlock is returned by Scheduler.Run when every remaining task is
// blocked waiting on a channel or select, no sleeper remains to wake one of
// them, and the scheduler has nothing further it could legally do. It is
// the scheduler's own diagnosis that the task program can never make
// further progress.
var ErrDeadlock = wrapf("corun: no task is runnable and no sleeper remains; scheduler is deadlocked")

type ctxKey struct{}

// Scheduler is a single-threaded, deterministic cooperative runtime. Tasks
// are dispatched in a fixed order (new tasks before resumed ones, and
// within each tier, High priority before Normal before Low), and at most
// one task body ever executes at a time: dispatch hands a task's goroutine
// control and blocks until that goroutine suspends again or completes.
//
// The zero value is not usable; construct with NewScheduler.
type Scheduler struct {
	opts *schedulerOptions
	log  schedulerLog
	metr *metricsRecorder

	mu sync.Mutex // guards the task table and the task fields TaskHandle reads

	rootCtx context.Context

	tasks      map[uint64]*task
	nextTaskID uint64
	nextSeq    uint64

	newTier    readyTier
	resumeTier readyTier
	sleepQ     sleepQueue

	now uint64

	running bool

	// awaiting is the rendezvous channel the currently-dispatched task's
	// goroutine signals once it suspends again or completes. Each call that
	// hands off control (runOneTurn, used both by Run's own loop and by a
	// rendezvous that inline-dispatches the other side of a channel
	// operation) saves the previous value, installs a fresh channel here,
	// waits on it, then restores the previous value — a save/restore stack
	// encoded through plain Go call-stack recursion, so nested handoffs
	// (a send whose matching receiver itself triggers another send) route
	// each signal to the handoff that is actually waiting for it.
	awaiting chan struct{}

	cancelMu      sync.Mutex
	pendingCancel []cancelRequest
}

type cancelRequest struct {
	t     *task
	cause error
}

// NewScheduler constructs a Scheduler. It does not start running: call Run
// to drive execution.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	cfg := resolveSchedulerOptions(opts)
	metr := &metricsRecorder{enabled: cfg.metricsEnabled}
	return &Scheduler{
		opts:    cfg,
		log:     newSchedulerLog(cfg.logger, cfg.name),
		metr:    metr,
		rootCtx: context.Background(),
		tasks:   make(map[uint64]*task),
	}
}

// Metrics returns a detached snapshot of the scheduler's current counters
// and gauges. Safe to call from any goroutine, including while Run is
// executing.
func (s *Scheduler) Metrics() Metrics { return s.metr.snapshot() }

// Name returns the scheduler's diagnostic label, set via WithName.
func (s *Scheduler) Name() string { return s.opts.name }

// Spawn registers body for execution and returns a handle to it. priority
// defaults to Normal if omitted; only the first value is used. The task is
// placed in the new-tier ready queue; no scheduling happens synchronously,
// even if Spawn is called before Run — dispatch always happens from
// within Run's own loop.
//
// Spawn is safe to call before Run, or from within a task body running on
// the same Scheduler. It is not safe to call concurrently from an
// unrelated goroutine while Run is executing.
func (s *Scheduler) Spawn(body Body, priority ...Priority) *TaskHandle {
	p := Normal
	if len(priority) > 0 {
		p = priority[0]
	}

	s.nextTaskID++
	id := s.nextTaskID
	s.nextSeq++

	// t.ctx/t.cancel are deliberately left nil here: Spawn may run before
	// Run assigns s.rootCtx to its caller-supplied ctx, so deriving a
	// child context now would parent it to the wrong root for any task
	// spawned ahead of time (the common case — see the package doc's
	// usage example). runOneTurn derives both, from whatever s.rootCtx
	// is by the time this task actually reaches its first dispatch.
	t := &task{
		id:       id,
		priority: p,
		state:    Pending,
		body:     body,
		seq:      s.nextSeq,
		sched:    s,
	}

	s.tasks[id] = t
	s.newTier.push(t)

	s.metr.recordTaskCreated()
	s.log.taskSpawned(id, p)

	return &TaskHandle{t: t, s: s}
}

// taskFromContext extracts the Scheduler and task currently executing on
// ctx, if any. Every cooperative primitive (Sleep, Yield, Channel.Send,
// Channel.Receive, Select) uses this to identify "the calling task"; none
// of them are meaningful outside a task body.
func taskFromContext(ctx context.Context) (*Scheduler, *task, bool) {
	v, ok := ctx.Value(ctxKey{}).(*taskCtxValue)
	if !ok {
		return nil, nil, false
	}
	return v.s, v.t, true
}

type taskCtxValue struct {
	s *Scheduler
	t *task
}

// SchedulerFromContext returns the Scheduler driving the task currently
// executing on ctx. It returns false outside a task body.
func SchedulerFromContext(ctx context.Context) (*Scheduler, bool) {
	s, _, ok := taskFromContext(ctx)
	return s, ok
}

// Sleep suspends the calling task for ticks logical steps: it becomes
// runnable again once the scheduler's logical clock reaches
// Scheduler's-time-at-call plus ticks. ticks == 0 is permitted; the task
// still passes through the sleep queue and the resume ready tier rather
// than continuing synchronously, so other ready tasks at the same logical
// moment are not starved.
//
// Sleep fails with ErrInvalidContext if ctx does not carry a task (i.e. it
// was not derived from a Body's own ctx parameter), and with
// *CancelledError if the task's TaskHandle.Cancel is invoked while asleep.
func Sleep(ctx context.Context, ticks uint64) error {
	s, t, ok := taskFromContext(ctx)
	if !ok {
		return ErrInvalidContext
	}
	return s.doSleep(t, ticks)
}

func (s *Scheduler) doSleep(t *task, ticks uint64) error {
	s.metr.recordSleepScheduled()
	return suspendGeneric(s, t, func() {
		t.state = Sleeping
		t.wakeTime = s.now + ticks
		s.nextSeq++
		t.seq = s.nextSeq
		s.sleepQ.insert(t)
		t.onCancelRemove = func() { s.sleepQ.removeTask(t) }
	})
}

// Yield suspends the calling task, placing it at the back of its own
// priority lane in the resume tier: it becomes runnable again on some
// future step, after any other task already ready at the same or higher
// priority. Called outside a task body, Yield is a no-op.
func Yield(ctx context.Context) {
	s, t, ok := taskFromContext(ctx)
	if !ok {
		return
	}
	_ = suspendGeneric(s, t, func() {
		t.state = Pending
		s.resumeTier.push(t)
		t.onCancelRemove = func() { s.resumeTier.remove(t) }
	})
}

// suspendGeneric is the non-channel suspension path shared by Sleep and
// Yield: install the task into whatever structure mutate reports, hand
// control back to the scheduler loop, and block until resumed or
// cancelled.
func suspendGeneric(s *Scheduler, t *task, mutate func()) error {
	if t.cancelled {
		return &CancelledError{TaskID: t.id, Cause: t.cancelCause}
	}
	r := newResumer()
	t.resume = r
	mutate()
	s.awaiting <- struct{}{}
	<-r.done
	return r.err
}

// suspendOnChannel is the generic suspension path used by Channel.Send and
// Channel.Receive: install queues the waiter on the channel, onCancel
// removes it again if the task is cancelled before it is woken.
func suspendOnChannel[T any](s *Scheduler, t *task, install func(*waiter[T]), onCancel func()) error {
	if t.cancelled {
		return &CancelledError{TaskID: t.id, Cause: t.cancelCause}
	}
	r := newResumer()
	t.resume = r
	t.onCancelRemove = onCancel
	s.metr.recordTaskBlocked()

	w := &waiter[T]{task: t, sched: s}
	install(w)

	s.awaiting <- struct{}{}
	<-r.done
	return r.err
}

// suspendOnSelect suspends t until one of sw's shadow waiters (already
// installed on each case's channel by the caller) is claimed.
func (s *Scheduler) suspendOnSelect(t *task, sw *selectWaiter) error {
	if t.cancelled {
		return &CancelledError{TaskID: t.id, Cause: t.cancelCause}
	}
	r := newResumer()
	t.resume = r
	// A select's shadow waiters live on every case's channel queue; rather
	// than splice the task out of each one, cancellation just claims the
	// shared waiter so every channel that later visits it treats it as
	// stale and discards it lazily.
	t.onCancelRemove = func() { sw.tryClaim(-1) }
	s.metr.recordTaskBlocked()

	s.awaiting <- struct{}{}
	<-r.done
	return r.err
}

// deferRecv completes a receiver waiter w with (value, ok) by moving the
// waiting task into the resume ready tier, to be actually dispatched on
// some future step. This is the right choice whenever the acting caller is
// itself playing the receiver role (Channel.Receive or a Select recvCase
// finding a sender already queued, and Channel.Close waking every queued
// receiver): the acting receiver's own continuation naturally runs before
// a merely-deferred task's, so the ordering invariant that a rendezvous's
// receiver side runs before its sender side holds without further work.
//
// If w is shadowing a Select, the result is stashed on the shared
// selectWaiter instead of the task's channelResult slot.
func deferRecv[T any](s *Scheduler, w *waiter[T], value T, ok bool) {
	t := w.task
	if w.sel != nil {
		w.sel.resultValue = value
		w.sel.resultOK = ok
		s.scheduleResume(t, nil)
		return
	}
	if cr, okCR := t.channelResult.(*recvResult[T]); okCR {
		cr.value = value
		cr.ok = ok
	}
	s.scheduleResume(t, nil)
}

// deferSend completes a queued send waiter w successfully, by the same
// deferred scheduling discipline as deferRecv. Used by Channel.Receive and
// recvCase.doImmediate whenever draining a value frees up a queued sender
// (either the one just taken from the buffer, or the one that refills it):
// the acting caller is playing the receiver role, so the woken sender's
// own continuation is left to run on a later step rather than inline.
func deferSend[T any](s *Scheduler, w *waiter[T]) {
	if w.sel != nil {
		w.sel.resultOK = true
	}
	s.scheduleResume(w.task, nil)
}

// deferSendRejected completes a send waiter w with err (used when the
// channel it was queued on is closed while it waited).
func deferSendRejected[T any](s *Scheduler, w *waiter[T], err error) {
	s.scheduleResume(w.task, err)
}

// inlineRecv completes a receiver waiter w with (value, ok) by
// dispatching its task immediately, nested within the acting caller's own
// call stack, and blocking until that task reaches its own next
// suspension or completion. This is the path Channel.Send and a Select
// sendCase use when they find a receiver already queued: the acting
// caller is playing the sender role, so without this the receiver's
// continuation would only run on some later step, after the sender's own
// subsequent code — backwards from the rule that a rendezvous's receiver
// side always runs before its sender side.
func inlineRecv[T any](s *Scheduler, w *waiter[T], value T, ok bool) {
	t := w.task
	if w.sel != nil {
		w.sel.resultValue = value
		w.sel.resultOK = ok
	} else if cr, okCR := t.channelResult.(*recvResult[T]); okCR {
		cr.value = value
		cr.ok = ok
	}
	s.inlineDispatch(t, nil)
}

// scheduleResume moves a suspended task into the resume ready tier,
// carrying the error (nil on success) its resumer will report once the
// scheduler actually dispatches it. The task's goroutine is not touched
// here: it only wakes once a later step pops it and resolves/rejects its
// resumer, preserving the one-goroutine-live-at-a-time invariant even
// though the triggering event happened on a different task's call stack.
func (s *Scheduler) scheduleResume(t *task, err error) {
	if t.cancelled {
		return
	}
	t.state = Pending
	t.onCancelRemove = nil
	t.pendingErr = err
	s.resumeTier.push(t)
}

// inlineDispatch immediately hands control to an already-suspended task t
// (resolving or rejecting its parked resumer) and blocks until t's
// goroutine reaches its own next suspension or completion, nested within
// whichever goroutine is currently live. It bypasses the ready queue
// entirely, which is what lets a rendezvous's receiver side run before the
// sender side's own continuation regardless of their relative priorities.
func (s *Scheduler) inlineDispatch(t *task, err error) {
	if t.cancelled {
		return
	}
	t.onCancelRemove = nil
	s.runOneTurn(t, false, err)
}

// requestCancel records a cancellation request for t. It is the only part
// of this package, aside from Metrics, safe to call from any goroutine:
// the actual queue surgery happens later, on the scheduler's own running
// goroutine, via drainCancels.
func (s *Scheduler) requestCancel(t *task, cause error) {
	s.cancelMu.Lock()
	s.pendingCancel = append(s.pendingCancel, cancelRequest{t: t, cause: cause})
	s.cancelMu.Unlock()
}

// drainCancels applies every pending cancellation request. Called only
// from the scheduler's own loop, between dispatches, where it is the sole
// live goroutine and queue mutation needs no further synchronization.
func (s *Scheduler) drainCancels() {
	s.cancelMu.Lock()
	reqs := s.pendingCancel
	s.pendingCancel = nil
	s.cancelMu.Unlock()

	for _, req := range reqs {
		s.performCancel(req.t, req.cause)
	}
}

// performCancel finalizes t as Cancelled, splicing it out of whatever
// queue holds it. If t is currently suspended with a live goroutine, that
// goroutine is woken with a *CancelledError and the scheduler waits for it
// to either re-suspend (which every primitive refuses, once t.cancelled is
// set) or return from its body.
func (s *Scheduler) performCancel(t *task, cause error) {
	s.mu.Lock()
	_, present := s.tasks[t.id]
	s.mu.Unlock()
	if !present {
		return
	}

	switch t.state {
	case Completed, Cancelled:
		return
	}

	if !t.started {
		// Never dispatched: just sitting in the new tier. No goroutine was
		// ever launched, so there is nothing to unwind.
		s.newTier.remove(t)
	} else if t.onCancelRemove != nil {
		t.onCancelRemove()
		t.onCancelRemove = nil
	} else {
		s.resumeTier.remove(t)
	}

	t.cancelled = true
	t.cancelCause = cause
	t.state = Cancelled

	s.mu.Lock()
	delete(s.tasks, t.id)
	s.mu.Unlock()

	if t.cancel != nil {
		// nil exactly when t was never dispatched: no context was ever
		// derived for it (see runOneTurn), so there is nothing to tear
		// down.
		t.cancel(cause)
	}
	s.log.taskCancelled(t.id)

	if t.started && t.resume != nil {
		s.runOneTurn(t, false, &CancelledError{TaskID: t.id, Cause: cause})
	}
}

// Run drives the scheduler to completion: it dispatches tasks, advances
// the logical clock, and returns once every task has finished, or
// ErrDeadlock if no task can ever become runnable again. ctx is the parent
// of every task's own context, so cancelling it cancels the ctx of every
// task that has been or will be dispatched. It does not cancel tasks
// through the scheduler: their states are unchanged, and a task suspended
// in Sleep, Yield, a channel operation or Select is not woken by it.
//
// Run must not be called concurrently, nor re-entrantly from within a
// task body on the same Scheduler; either case returns ErrAlreadyRunning.
func (s *Scheduler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.rootCtx = ctx
	defer func() { s.running = false }()

	for {
		s.drainCancels()

		if len(s.tasks) == 0 {
			return nil
		}

		s.drainDueSleepers()

		t := s.newTier.pop()
		firstRun := true
		if t == nil {
			t = s.resumeTier.pop()
			firstRun = false
		}

		if t == nil {
			if wake, ok := s.sleepQ.peekWakeTime(); ok {
				from := s.now
				s.now = wake
				s.metr.recordIdleCycle()
				s.log.clockJumped(from, s.now)
				continue
			}
			return ErrDeadlock
		}

		err := t.pendingErr
		t.pendingErr = nil
		s.runOneTurn(t, firstRun, err)
		s.now++
		s.metr.recordStep(s.newTier.len()+s.resumeTier.len(), s.sleepQ.Len(), s.now)
	}
}

// drainDueSleepers moves every sleeping task whose wakeTime has arrived
// into the resume tier, in wake-time (then insertion) order.
func (s *Scheduler) drainDueSleepers() {
	for {
		wake, ok := s.sleepQ.peekWakeTime()
		if !ok || wake > s.now {
			return
		}
		t := heapPopSleeper(&s.sleepQ)
		t.state = Pending
		t.onCancelRemove = nil
		s.metr.recordSleepWoken()
		s.resumeTier.push(t)
	}
}

func heapPopSleeper(q *sleepQueue) *task {
	tk := (*q)[0]
	q.removeTask(tk)
	return tk
}

// runOneTurn hands control to t's goroutine — launching it on first
// dispatch, or resolving (or, if resumeErr is non-nil, rejecting) its
// parked resumer on a resume — and blocks until that goroutine suspends
// again or its body returns.
//
// It installs a fresh, local handoff channel for the duration of the
// call, saving and restoring whatever was previously in s.awaiting. This
// is what makes the function safely nestable: Run's own loop calls it for
// every ordinary dispatch, and a channel rendezvous that needs its other
// side to run immediately (see inlineDispatch) calls it again from
// partway through the first call, without the two handoffs' signals
// getting crossed.
func (s *Scheduler) runOneTurn(t *task, firstRun bool, resumeErr error) {
	prev := s.awaiting
	local := make(chan struct{})
	s.awaiting = local

	if !t.cancelled {
		// A cancelled task is only being unwound; it stays Cancelled.
		t.state = Running
	}
	s.log.taskDispatched(t.id, s.now, firstRun)

	if firstRun {
		t.started = true
		t.ctx, t.cancel = context.WithCancelCause(s.rootCtx)
		bodyCtx := context.WithValue(t.ctx, ctxKey{}, &taskCtxValue{s: s, t: t})
		go func() {
			result, err := t.body(bodyCtx)
			s.finishTask(t, result, err)
		}()
	} else {
		r := t.resume
		t.resume = nil
		if resumeErr != nil {
			r.reject(resumeErr)
		} else {
			r.resolve()
		}
	}

	<-local
	s.awaiting = prev
}

// finishTask records a completed body's result and error, and signals the
// scheduler loop that this dispatch is over. If t was already cancelled
// out from under its still-unwinding goroutine, its terminal state stays
// Cancelled and the task table entry (already removed by performCancel)
// is not recreated; only the observable Result/Err on the TaskHandle are
// updated for inspection.
func (s *Scheduler) finishTask(t *task, result any, err error) {
	s.mu.Lock()
	t.result = result
	t.err = err
	if t.state != Cancelled {
		t.state = Completed
		delete(s.tasks, t.id)
	}
	s.mu.Unlock()

	s.metr.recordTaskCompleted()
	s.log.taskCompleted(t.id, err)

	s.awaiting <- struct{}{}
}
