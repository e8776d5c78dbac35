// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corun

import "container/heap"

// readyTier is one of two layers the scheduler keeps separate: tasks never
// dispatched ("new"), or tasks previously dispatched and now re-ready
// ("resume"). Each tier holds one FIFO list per Priority.
type readyTier struct {
	lanes [numPriorities][]*task
}

func (t *readyTier) push(tk *task) {
	t.lanes[tk.priority] = append(t.lanes[tk.priority], tk)
}

// pop dequeues the head of the highest-priority non-empty lane.
func (t *readyTier) pop() *task {
	for p := High; p <= Low; p++ {
		lane := t.lanes[p]
		if len(lane) == 0 {
			continue
		}
		tk := lane[0]
		t.lanes[p] = lane[1:]
		return tk
	}
	return nil
}

// remove deletes tk from its lane, used by cancellation to splice a pending
// task out of the ready queue before it is ever dispatched.
func (t *readyTier) remove(tk *task) bool {
	lane := t.lanes[tk.priority]
	for i, cand := range lane {
		if cand == tk {
			t.lanes[tk.priority] = append(lane[:i], lane[i+1:]...)
			return true
		}
	}
	return false
}

func (t *readyTier) empty() bool {
	for p := High; p <= Low; p++ {
		if len(t.lanes[p]) > 0 {
			return false
		}
	}
	return true
}

func (t *readyTier) len() int {
	n := 0
	for p := High; p <= Low; p++ {
		n += len(t.lanes[p])
	}
	return n
}

// sleepQueue is a min-heap of sleeping tasks ordered by wakeTime ascending,
// stable on ties by insertion sequence, keyed by logical ticks rather than
// wall-clock time.
type sleepQueue []*task

func (q sleepQueue) Len() int { return len(q) }

func (q sleepQueue) Less(i, j int) bool {
	if q[i].wakeTime != q[j].wakeTime {
		return q[i].wakeTime < q[j].wakeTime
	}
	return q[i].seq < q[j].seq
}

func (q sleepQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *sleepQueue) Push(x any) {
	tk := x.(*task)
	tk.heapIndex = len(*q)
	*q = append(*q, tk)
}

func (q *sleepQueue) Pop() any {
	old := *q
	n := len(old)
	tk := old[n-1]
	old[n-1] = nil
	tk.heapIndex = -1
	*q = old[:n-1]
	return tk
}

func (q *sleepQueue) insert(tk *task) { heap.Push(q, tk) }

func (q *sleepQueue) removeTask(tk *task) {
	if tk.heapIndex < 0 || tk.heapIndex >= len(*q) {
		return
	}
	heap.Remove(q, tk.heapIndex)
}

// peekWakeTime returns the smallest wakeTime in the queue and true, or
// (0, false) if empty.
func (q sleepQueue) peekWakeTime() (uint64, bool) {
	if len(q) == 0 {
		return 0, false
	}
	return q[0].wakeTime, true
}
