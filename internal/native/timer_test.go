// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_order(t *testing.T) {
	l := newTestLoop(t)
	var order []int
	timers := make([]Timer, 3)
	for i, timeout := range []uint64{30, 10, 20} {
		require.Zero(t, l.InitTimer(&timers[i]))
		require.Zero(t, timers[i].Start(func(*Timer) { order = append(order, i) }, timeout, 0))
	}
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestTimer_sameDueInStartOrder(t *testing.T) {
	l := newTestLoop(t)
	var order []int
	timers := make([]Timer, 4)
	for i := range timers {
		require.Zero(t, l.InitTimer(&timers[i]))
		require.Zero(t, timers[i].Start(func(*Timer) { order = append(order, i) }, 5, 0))
	}
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestTimer_repeat(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	var count int
	require.Zero(t, timer.Start(func(h *Timer) {
		count++
		if count == 3 {
			h.Stop()
		}
	}, 1, 1))
	assert.True(t, timer.IsActive())
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, 3, count)
	assert.False(t, timer.IsActive())
}

func TestTimer_againNeverStarted(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	assert.Equal(t, EINVAL, timer.Again())
	timer.SetRepeat(7)
	assert.Equal(t, uint64(7), timer.Repeat())
}

func TestTimer_zeroTimeoutRestartedRunsNextIteration(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	var fired int
	var cb TimerCb
	cb = func(h *Timer) {
		fired++
		if fired < 3 {
			h.Start(cb, 0, 0)
		}
	}
	require.Zero(t, timer.Start(cb, 0, 0))
	l.Run(RunNoWait)
	assert.Equal(t, 1, fired)
	l.Run(RunNoWait)
	assert.Equal(t, 2, fired)
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, 3, fired)
}

func TestTimer_dueIn(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	assert.Zero(t, timer.DueIn())
	require.Zero(t, timer.Start(func(*Timer) {}, 10_000, 0))
	assert.InDelta(t, 10_000, timer.DueIn(), 50)
	require.Zero(t, timer.Stop())
	assert.Zero(t, timer.DueIn())
}
