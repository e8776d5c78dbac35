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

func TestSendOnClosedError_Error(t *testing.T) {
	err := &SendOnClosedError{ChannelID: 7}
	require.Contains(t, err.Error(), "7")
}

func TestCancelledError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := &CancelledError{TaskID: 3}
		require.Contains(t, err.Error(), "3")
		require.Nil(t, errors.Unwrap(err))
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := &CancelledError{TaskID: 4, Cause: cause}
		require.Contains(t, err.Error(), "boom")
		require.ErrorIs(t, err, cause)
	})
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	require.False(t, errors.Is(ErrInvalidContext, ErrAlreadyRunning))
	require.False(t, errors.Is(ErrAlreadyRunning, ErrInvalidArgument))
	require.False(t, errors.Is(ErrInvalidArgument, ErrDeadlock))
}

func TestSleep_OutsideTask(t *testing.T) {
	require.ErrorIs(t, Sleep(context.Background(), 1), ErrInvalidContext)
}

func TestYield_OutsideTask(t *testing.T) {
	// Yield is a documented no-op outside a task body; it must not panic.
	require.NotPanics(t, func() { Yield(context.Background()) })
}

func TestScheduler_DeadlockWhenAllTasksBlockForever(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[int](0)
	s.Spawn(func(ctx context.Context) (any, error) {
		_, _, _ = ch.Receive(ctx)
		return nil, nil
	})

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrDeadlock)
}

func TestChannelSelect_OutsideTask_ReturnErrInvalidContext(t *testing.T) {
	ch := NewChannel[int](1)

	require.ErrorIs(t, ch.Send(context.Background(), 1), ErrInvalidContext)

	_, ok, err := ch.Receive(context.Background())
	require.False(t, ok)
	require.ErrorIs(t, err, ErrInvalidContext)

	res := Select(context.Background(), false, RecvCase(ch))
	require.Equal(t, -1, res.Index)
	require.ErrorIs(t, res.Err, ErrInvalidContext)
}

func TestScheduler_ReentrantRunRejected(t *testing.T) {
	s := NewScheduler()
	var inner error
	s.Spawn(func(ctx context.Context) (any, error) {
		inner = s.Run(ctx)
		return nil, nil
	})
	require.NoError(t, s.Run(context.Background()))
	require.ErrorIs(t, inner, ErrAlreadyRunning)
}
