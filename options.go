// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// schedulerOptions holds configuration applied by SchedulerOption values.
type schedulerOptions struct {
	name           string
	metricsEnabled bool
	logger         *logiface.Logger[*stumpy.Event]
}

// SchedulerOption configures a Scheduler at construction time.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions)
}

type schedulerOptionFunc func(*schedulerOptions)

func (f schedulerOptionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithName labels the Scheduler for diagnostics: it is carried into every
// structured log field emitted by this scheduler, so logs from multiple
// schedulers in the same process can be told apart.
func WithName(name string) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.name = name })
}

// WithMetrics enables runtime metrics collection. When enabled, counters and
// queue-depth gauges are updated on every step and can be read at any time
// via Scheduler.Metrics. Disabled by default, as the opt-in cost of a
// handful of integer increments per step is still a cost.
func WithMetrics(enabled bool) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.metricsEnabled = enabled })
}

// WithLogger attaches a structured logger that receives one event per
// scheduler lifecycle transition (task spawned, dispatched, completed,
// cancelled; logical clock jumped while idle). Pass nil, or
// omit WithLogger entirely, to keep the default no-op logger.
func WithLogger(logger *logiface.Logger[*stumpy.Event]) SchedulerOption {
	return schedulerOptionFunc(func(o *schedulerOptions) { o.logger = logger })
}

func resolveSchedulerOptions(opts []SchedulerOption) *schedulerOptions {
	cfg := &schedulerOptions{name: "scheduler"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScheduler(cfg)
	}
	return cfg
}
