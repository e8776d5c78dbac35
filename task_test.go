// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskHandle_LifecycleStates(t *testing.T) {
	s := NewScheduler()
	var h *TaskHandle
	h = s.Spawn(func(ctx context.Context) (any, error) {
		require.Equal(t, Running, h.State())
		return 42, nil
	})

	require.Equal(t, Pending, h.State())

	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, Completed, h.State())
	require.Equal(t, 42, h.Result())
	require.NoError(t, h.Err())
}

func TestTaskHandle_ErrorPropagation(t *testing.T) {
	s := NewScheduler()
	sentinel := errors.New("task failed")
	h := s.Spawn(func(ctx context.Context) (any, error) {
		return nil, sentinel
	})

	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, Completed, h.State())
	require.ErrorIs(t, h.Err(), sentinel)
}

func TestTaskHandle_Cancel_BeforeDispatch(t *testing.T) {
	s := NewScheduler()
	ran := false
	blocker := s.Spawn(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, context.Cause(ctx)
	})
	h := s.Spawn(func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	})

	h.Cancel()
	blocker.CancelCause(errors.New("shut down"))

	require.NoError(t, s.Run(context.Background()))

	require.False(t, ran)
	require.Equal(t, Cancelled, h.State())
}

func TestTaskHandle_CancelDuringSleep(t *testing.T) {
	s := NewScheduler()
	var h *TaskHandle
	cause := errors.New("give up")

	h = s.Spawn(func(ctx context.Context) (any, error) {
		err := Sleep(ctx, 100)
		return nil, err
	})

	s.Spawn(func(ctx context.Context) (any, error) {
		h.CancelCause(cause)
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, Cancelled, h.State())
	var cancelled *CancelledError
	require.ErrorAs(t, h.Err(), &cancelled)
	require.ErrorIs(t, cancelled, cause)
}

func TestPriority_DefaultsToNormal(t *testing.T) {
	s := NewScheduler()
	var seenPriority Priority
	s.Spawn(func(ctx context.Context) (any, error) {
		s2, tk, ok := taskFromContext(ctx)
		require.True(t, ok)
		require.Equal(t, s, s2)
		seenPriority = tk.priority
		return nil, nil
	})
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, Normal, seenPriority)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "sleeping", Sleeping.String())
	require.Equal(t, "completed", Completed.String())
	require.Equal(t, "cancelled", Cancelled.String())
	require.Equal(t, "invalid", State(99).String())
}
