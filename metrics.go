// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import "sync"

// Metrics is a read-only observability snapshot: counters for tasks
// created/completed/blocked, sleeps scheduled/woken, steps executed, idle
// cycles, current and maximum ready/sleep queue depths, and the current
// logical time. There are no wall-clock latencies or throughput rates here
// — against a logical clock with no real-time dimension, they would not
// mean anything.
type Metrics struct {
	TasksCreated   uint64
	TasksCompleted uint64
	TasksBlocked   uint64
	SleepsScheduled uint64
	SleepsWoken     uint64
	StepsExecuted   uint64
	IdleCycles      uint64

	ReadyDepthCurrent int
	ReadyDepthMax     int
	SleepDepthCurrent int
	SleepDepthMax     int

	LogicalTime uint64
}

// metricsRecorder is the Scheduler's mutable side of Metrics; it is a
// distinct type so the public Metrics value returned by Scheduler.Metrics
// is always a detached copy, safe to read concurrently with further
// recording.
type metricsRecorder struct {
	mu      sync.Mutex
	enabled bool
	snap    Metrics
}

func (m *metricsRecorder) snapshot() Metrics {
	if m == nil {
		return Metrics{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *metricsRecorder) recordTaskCreated() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.TasksCreated++
	m.mu.Unlock()
}

func (m *metricsRecorder) recordTaskCompleted() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.TasksCompleted++
	m.mu.Unlock()
}

func (m *metricsRecorder) recordTaskBlocked() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.TasksBlocked++
	m.mu.Unlock()
}

func (m *metricsRecorder) recordSleepScheduled() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.SleepsScheduled++
	m.mu.Unlock()
}

func (m *metricsRecorder) recordSleepWoken() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.SleepsWoken++
	m.mu.Unlock()
}

func (m *metricsRecorder) recordIdleCycle() {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	m.snap.IdleCycles++
	m.mu.Unlock()
}

// recordStep updates per-step gauges: steps executed, current/maximum
// ready and sleep depths, and the logical clock.
func (m *metricsRecorder) recordStep(readyDepth, sleepDepth int, now uint64) {
	if m == nil || !m.enabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.StepsExecuted++
	m.snap.ReadyDepthCurrent = readyDepth
	if readyDepth > m.snap.ReadyDepthMax {
		m.snap.ReadyDepthMax = readyDepth
	}
	m.snap.SleepDepthCurrent = sleepDepth
	if sleepDepth > m.snap.SleepDepthMax {
		m.snap.SleepDepthMax = sleepDepth
	}
	m.snap.LogicalTime = now
}
