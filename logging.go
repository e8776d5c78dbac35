// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// NewLogger builds a structured logger suitable for WithLogger, using
// stumpy as the logiface event implementation. w defaults to io.Discard
// when nil, which is the configuration used for the package's own tests.
func NewLogger(w io.Writer, level logiface.Level) *logiface.Logger[*stumpy.Event] {
	if w == nil {
		w = io.Discard
	}
	return stumpy.L.New(
		stumpy.L.WithLevel(level),
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
	)
}

// noopLogger is the default attached when no WithLogger option is supplied:
// every event is built and immediately discarded.
func noopLogger() *logiface.Logger[*stumpy.Event] {
	return NewLogger(io.Discard, logiface.LevelDisabled)
}

// schedulerLog is a small façade over the attached *logiface.Logger so the
// rest of the package doesn't need nil checks: the Scheduler always holds a
// non-nil logger (see newSchedulerLog below), defaulting to
// one at LevelDisabled, which logiface itself is documented to special-case
// into skipping event construction entirely.
type schedulerLog struct {
	l    *logiface.Logger[*stumpy.Event]
	name string
}

func newSchedulerLog(l *logiface.Logger[*stumpy.Event], name string) schedulerLog {
	if l == nil {
		l = noopLogger()
	}
	return schedulerLog{l: l, name: name}
}

func (s schedulerLog) taskSpawned(id uint64, priority Priority) {
	s.l.Info().
		Str("scheduler", s.name).
		Int64("task_id", int64(id)).
		Str("priority", priority.String()).
		Log("task spawned")
}

func (s schedulerLog) taskDispatched(id uint64, tick uint64, firstRun bool) {
	s.l.Debug().
		Str("scheduler", s.name).
		Int64("task_id", int64(id)).
		Int64("tick", int64(tick)).
		Log(dispatchMessage(firstRun))
}

func dispatchMessage(firstRun bool) string {
	if firstRun {
		return "task dispatched for the first time"
	}
	return "task resumed"
}

func (s schedulerLog) taskCompleted(id uint64, err error) {
	b := s.l.Info().
		Str("scheduler", s.name).
		Int64("task_id", int64(id))
	if err != nil {
		b = b.Err(err)
	}
	b.Log("task completed")
}

func (s schedulerLog) taskCancelled(id uint64) {
	s.l.Info().
		Str("scheduler", s.name).
		Int64("task_id", int64(id)).
		Log("task cancelled")
}

func (s schedulerLog) clockJumped(from, to uint64) {
	s.l.Debug().
		Str("scheduler", s.name).
		Int64("from", int64(from)).
		Int64("to", int64(to)).
		Log("logical clock jumped forward to next sleeper")
}
