// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"container/heap"
	"math"
)

// TimerCb is invoked when a timer expires.
type TimerCb func(t *Timer)

// Timer schedules a callback after a timeout, optionally repeating.
type Timer struct {
	Handle
	cb      TimerCb
	timeout uint64
	repeat  uint64
	startID uint64
	index   int
	ready   bool
}

// timerHeap is a min-heap of timers, ordered by due time then start order.
type timerHeap []*Timer

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].timeout != h[j].timeout {
		return h[i].timeout < h[j].timeout
	}
	return h[i].startID < h[j].startID
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.index = -1
	*h = old[:n-1]
	return x
}

// InitTimer initializes t on l.
func (l *Loop) InitTimer(t *Timer) int {
	l.handleInit(&t.Handle, TimerHandle, t)
	t.cb = nil
	t.timeout, t.repeat, t.startID = 0, 0, 0
	t.index = -1
	t.ready = false
	return 0
}

// Start arms the timer. timeout and repeat are in milliseconds; a non zero
// repeat re-arms the timer after every expiry. Starting an active timer
// restarts it.
func (t *Timer) Start(cb TimerCb, timeout, repeat uint64) int {
	if t.IsClosing() || cb == nil {
		return EINVAL
	}
	t.Stop()

	l := t.loop
	due := l.time + timeout
	if due < l.time {
		due = math.MaxUint64
	}

	t.cb = cb
	t.timeout = due
	t.repeat = repeat
	t.startID = l.timerCounter
	l.timerCounter++

	heap.Push(&l.timers, t)
	t.start()
	return 0
}

// Stop disarms the timer. Idempotent.
func (t *Timer) Stop() int {
	t.ready = false
	if !t.IsActive() {
		return 0
	}
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
	t.stop()
	return 0
}

// Again restarts a repeating timer using its repeat value as the timeout. It
// fails with EINVAL if the timer was never started.
func (t *Timer) Again() int {
	if t.cb == nil {
		return EINVAL
	}
	if t.repeat != 0 {
		t.Stop()
		t.Start(t.cb, t.repeat, t.repeat)
	}
	return 0
}

// SetRepeat sets the repeat interval, taking effect at the next expiry.
func (t *Timer) SetRepeat(repeat uint64) { t.repeat = repeat }

// Repeat returns the repeat interval.
func (t *Timer) Repeat() uint64 { return t.repeat }

// DueIn returns the milliseconds until expiry, 0 if expired or inactive.
func (t *Timer) DueIn() uint64 {
	if !t.IsActive() || t.timeout <= t.loop.time {
		return 0
	}
	return t.timeout - t.loop.time
}

// runTimers collects every expired timer before running any callback, so a
// timer restarted with a zero timeout from its own callback fires on the
// next iteration rather than in a tight loop.
func (l *Loop) runTimers() {
	var ready []*Timer
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.timeout > l.time {
			break
		}
		t.Stop()
		t.ready = true
		ready = append(ready, t)
	}

	for _, t := range ready {
		if !t.ready {
			continue
		}
		t.ready = false
		cb := t.cb
		t.Again()
		cb(t)
	}
}
