// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestYield_RoundRobinsWithinLane verifies that a chain of self-yielding
// tasks interleaves in FIFO order within a single priority lane, rather
// than one task monopolizing the scheduler by repeatedly yielding and
// immediately being re-dispatched ahead of its peers.
func TestYield_RoundRobinsWithinLane(t *testing.T) {
	s := NewScheduler()

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	spawnLoop := func(name string, iterations int) {
		s.Spawn(func(ctx context.Context) (any, error) {
			for i := 0; i < iterations; i++ {
				record(name)
				Yield(ctx)
			}
			return nil, nil
		}, Normal)
	}

	spawnLoop("a", 3)
	spawnLoop("b", 3)

	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, order)
}

// TestYield_DoesNotStarvePeers verifies that a task which yields does not
// observably block progress of other ready tasks: it goes through the
// resume tier rather than continuing synchronously, so a never-dispatched
// peer still sitting in the new tier runs before it resumes.
func TestYield_DoesNotStarvePeers(t *testing.T) {
	s := NewScheduler()

	var mu sync.Mutex
	var ran []string
	record := func(name string) {
		mu.Lock()
		ran = append(ran, name)
		mu.Unlock()
	}

	s.Spawn(func(ctx context.Context) (any, error) {
		Yield(ctx)
		record("yielder")
		return nil, nil
	}, Normal)

	s.Spawn(func(ctx context.Context) (any, error) {
		record("other")
		return nil, nil
	}, Normal)

	require.NoError(t, s.Run(context.Background()))

	require.Equal(t, []string{"other", "yielder"}, ran)
}
