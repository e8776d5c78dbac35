// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect_FastPathDeclarationOrder(t *testing.T) {
	s := NewScheduler()
	a := NewChannel[int](1)
	b := NewChannel[int](1)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		require.NoError(t, a.Send(ctx, 1))
		require.NoError(t, b.Send(ctx, 2))
		return nil, nil
	})
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, RecvCase(b), RecvCase(a))
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))

	// Both b and a are ready; b is declared first, so it wins regardless
	// of which channel actually received a value first.
	require.Equal(t, 0, result.Index)
	require.Equal(t, 2, result.Value)
	require.True(t, result.OK)
}

func TestSelect_DefaultCaseFiresWhenNothingReady(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[int](0)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, true, RecvCase(ch))
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, -1, result.Index)
	require.True(t, result.OK)
}

func TestSelect_SuspendsThenWinsOnDelivery(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[int](0)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, RecvCase(ch))
		return nil, nil
	})
	s.Spawn(func(ctx context.Context) (any, error) {
		return nil, ch.Send(ctx, 99)
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 0, result.Index)
	require.Equal(t, 99, result.Value)
	require.True(t, result.OK)
}

func TestSelect_OnlyOneCaseEverFires(t *testing.T) {
	s := NewScheduler()
	a := NewChannel[int](0)
	b := NewChannel[int](0)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, RecvCase(a), RecvCase(b))
		return nil, nil
	})

	// A single sender delivers on a. Its send claims the select's shared
	// waiter through case 0, so the select reports case 0 with that value,
	// and its other shadow waiter (on b) never fires.
	senderADone := false
	s.Spawn(func(ctx context.Context) (any, error) {
		if err := a.Send(ctx, 1); err == nil {
			senderADone = true
		}
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 0, result.Index)
	require.Equal(t, 1, result.Value)
	require.True(t, senderADone)
}

func TestSelect_SendCase(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[string](1)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, SendCase(ch, "hello"))
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 0, result.Index)
	require.True(t, result.OK)
	require.Equal(t, 1, ch.Len())
}

func TestSelect_SendCaseOnClosedChannelFailsInsteadOfBlocking(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[int](1)

	s.Spawn(func(ctx context.Context) (any, error) {
		require.NoError(t, ch.Send(ctx, 1))
		ch.Close()
		return nil, nil
	}, High)

	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, SendCase(ch, 2))
		return nil, nil
	}, Low)

	require.NoError(t, s.Run(context.Background()))

	var closedErr *SendOnClosedError
	require.ErrorAs(t, result.Err, &closedErr)
	require.Equal(t, ch.ID(), closedErr.ChannelID)
}

func TestSelect_NoCasesNoDefaultIsInvalidArgument(t *testing.T) {
	s := NewScheduler()
	var result SelectResult
	s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false)
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, -1, result.Index)
	require.ErrorIs(t, result.Err, ErrInvalidArgument)
}

func TestSelect_CancelWhileSuspended(t *testing.T) {
	s := NewScheduler()
	ch := NewChannel[int](0)

	var h *TaskHandle
	var result SelectResult
	h = s.Spawn(func(ctx context.Context) (any, error) {
		result = Select(ctx, false, RecvCase(ch))
		return nil, result.Err
	})
	s.Spawn(func(ctx context.Context) (any, error) {
		h.Cancel()
		return nil, nil
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, Cancelled, h.State())
	require.Error(t, result.Err)
}
