// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestResolveSchedulerOptions_Defaults(t *testing.T) {
	cfg := resolveSchedulerOptions(nil)
	require.Equal(t, "scheduler", cfg.name)
	require.False(t, cfg.metricsEnabled)
	require.Nil(t, cfg.logger)
}

func TestWithName(t *testing.T) {
	s := NewScheduler(WithName("worker-pool"))
	require.Equal(t, "worker-pool", s.Name())
}

func TestWithMetrics_DisabledByDefault(t *testing.T) {
	s := NewScheduler()
	s.Spawn(func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, s.Run(context.Background()))

	m := s.Metrics()
	require.Zero(t, m.TasksCreated)
	require.Zero(t, m.StepsExecuted)
}

func TestWithMetrics_Enabled(t *testing.T) {
	s := NewScheduler(WithMetrics(true))
	s.Spawn(func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, s.Run(context.Background()))

	m := s.Metrics()
	require.EqualValues(t, 1, m.TasksCreated)
	require.EqualValues(t, 1, m.TasksCompleted)
	require.GreaterOrEqual(t, m.StepsExecuted, uint64(1))
}

func TestWithLogger_NilIsNoop(t *testing.T) {
	require.NotPanics(t, func() {
		s := NewScheduler(WithLogger(nil))
		s.Spawn(func(ctx context.Context) (any, error) { return nil, nil })
		require.NoError(t, s.Run(context.Background()))
	})
}

func TestWithLogger_DiscardWriter(t *testing.T) {
	logger := NewLogger(nil, logiface.LevelInformational)
	s := NewScheduler(WithLogger(logger))
	s.Spawn(func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, s.Run(context.Background()))
}

func TestSchedulerOption_NilOptionIgnored(t *testing.T) {
	require.NotPanics(t, func() {
		NewScheduler(nil)
	})
}
