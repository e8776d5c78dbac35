// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package corun provides a deterministic, single-threaded cooperative
// concurrency runtime: a scheduler that multiplexes user tasks, a CSP-style
// [Channel] with FIFO ordering and rendezvous semantics, and a multi-way
// [Select] that chooses among channel operations with a fixed tie-break
// rule.
//
// # Determinism
//
// Given identical task programs, [Scheduler.Run] produces identical
// observable interleavings across runs, platforms, and processes. Every
// other design choice in this package is subordinate to that property:
// there is no real parallelism, no preemption, and no wall-clock timing —
// only a logical clock advanced by the scheduler itself.
//
// # Architecture
//
// A [Scheduler] owns a table of tasks, a two-tier ready queue (new
// tasks before resuming tasks, at each of three priorities), a sleep queue
// ordered by logical wake time, and a logical clock. [Scheduler.Spawn]
// registers a task and returns a [TaskHandle] for it; [Sleep] and [Yield]
// suspend the calling task; [Scheduler.Run] drives
// execution one step at a time until every task has completed or the system
// is idle with no sleepers remaining.
//
// A [Channel] is an ordered, optionally buffered, single-type message queue
// with two FIFO wait queues (senders and receivers). [Select] inspects a
// declared list of channel cases for one that is immediately ready and,
// failing that, registers a waiter on every case so that at most one of
// them ultimately completes.
//
// # Usage
//
//	sched := corun.NewScheduler()
//	ch := corun.NewChannel[int](0)
//
//	sched.Spawn(func(ctx context.Context) (any, error) {
//		for i := 1; i <= 3; i++ {
//			if err := ch.Send(ctx, i); err != nil {
//				return nil, err
//			}
//		}
//		ch.Close()
//		return nil, nil
//	}, corun.Normal)
//
//	sched.Spawn(func(ctx context.Context) (any, error) {
//		for v, ok, _ := ch.Receive(ctx); ok; v, ok, _ = ch.Receive(ctx) {
//			fmt.Println(v)
//		}
//		return nil, nil
//	}, corun.Normal)
//
//	if err := sched.Run(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// # Concurrency model
//
// Exactly one task body runs at a time. [Scheduler.Spawn],
// [Channel.Send], [Channel.Receive], [Select], [TaskHandle.Cancel], and
// [Channel.Close] are only safe to call from within a task body running on
// the goroutine that called [Scheduler.Run] — or before Run is first
// called. [TaskHandle.Cancel] and [Scheduler.Metrics] are the two
// documented exceptions: both are internally synchronized so that a task
// can be cancelled, and the scheduler observed, from any goroutine.
package corun
