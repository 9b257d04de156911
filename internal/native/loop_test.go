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

func TestLoop_runEmpty(t *testing.T) {
	l := newTestLoop(t)
	assert.False(t, l.Alive())
	assert.Zero(t, l.Run(RunDefault))
	assert.Zero(t, l.Run(RunNoWait))
	assert.Zero(t, l.BackendTimeout())
}

func TestLoop_closeBusy(t *testing.T) {
	l := new(Loop)
	require.Zero(t, l.Init())
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	assert.Equal(t, EBUSY, l.Close())

	var closed bool
	timer.Close(func(h *Handle) {
		assert.Same(t, &timer.Handle, h)
		closed = true
	})
	assert.True(t, timer.IsClosing())
	assert.False(t, timer.IsClosed())
	assert.False(t, closed)
	l.Run(RunDefault)
	assert.True(t, closed)
	assert.True(t, timer.IsClosed())
	assert.Zero(t, l.Close())
}

func TestLoop_runNoWaitWithPendingTimer(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	require.Zero(t, timer.Start(func(*Timer) {}, 60_000, 0))
	assert.True(t, l.Alive())
	assert.Positive(t, l.Run(RunNoWait))
	assert.InDelta(t, 60_000, l.BackendTimeout(), 50)

	timer.Unref()
	assert.False(t, timer.HasRef())
	assert.False(t, l.Alive())
	assert.Zero(t, l.Run(RunDefault))
	timer.Ref()
	assert.True(t, l.Alive())
	timer.Stop()
	assert.False(t, l.Alive())
}

func TestLoop_stop(t *testing.T) {
	l := newTestLoop(t)
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	var count int
	require.Zero(t, timer.Start(func(*Timer) {
		count++
		l.Stop()
	}, 1, 1))
	assert.Positive(t, l.Run(RunDefault))
	assert.Equal(t, 1, count)
	assert.Positive(t, l.Run(RunDefault))
	assert.Equal(t, 2, count)
}

func TestLoop_walk(t *testing.T) {
	l := newTestLoop(t)
	timers := make([]Timer, 3)
	for i := range timers {
		require.Zero(t, l.InitTimer(&timers[i]))
	}
	var idle Idle
	require.Zero(t, l.InitIdle(&idle))

	var seen []any
	l.Walk(func(h *Handle) { seen = append(seen, h.Outer()) })
	assert.ElementsMatch(t, []any{&timers[0], &timers[1], &timers[2], &idle}, seen)

	timers[1].Close(nil)
	l.Run(RunNoWait)
	seen = seen[:0]
	l.Walk(func(h *Handle) { seen = append(seen, h.Type()) })
	assert.ElementsMatch(t, []any{TimerHandle, TimerHandle, IdleHandle}, seen)
}

func TestLoop_watcherPhases(t *testing.T) {
	l := newTestLoop(t)
	var (
		prepare Prepare
		check   Check
		idle    Idle
		order   []string
	)
	require.Zero(t, l.InitPrepare(&prepare))
	require.Zero(t, l.InitCheck(&check))
	require.Zero(t, l.InitIdle(&idle))
	require.Zero(t, prepare.Start(func(*Prepare) { order = append(order, "prepare") }))
	require.Zero(t, check.Start(func(*Check) { order = append(order, "check") }))
	require.Zero(t, idle.Start(func(*Idle) { order = append(order, "idle") }))
	l.Run(RunNoWait)
	assert.Equal(t, []string{"idle", "prepare", "check"}, order)
}

func TestLoop_async(t *testing.T) {
	l := newTestLoop(t)
	var (
		async Async
		calls int
		done  = make(chan struct{})
	)
	require.Zero(t, l.InitAsync(&async, func(h *Async) {
		calls++
		select {
		case <-done:
			h.Close(nil)
		default:
		}
	}))
	go func() {
		for i := 0; i < 10; i++ {
			async.Send()
		}
		close(done)
		async.Send()
	}()
	runWithDeadline(t, l, 5*time.Second)
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, 11)
}

func TestLoop_metricsIdleTime(t *testing.T) {
	l := newTestLoop(t)
	require.Zero(t, l.ConfigureMetricsIdleTime())
	var timer Timer
	require.Zero(t, l.InitTimer(&timer))
	require.Zero(t, timer.Start(func(*Timer) {}, 20, 0))
	runWithDeadline(t, l, 5*time.Second)
	assert.Positive(t, l.MetricsIdleTime())
}

func TestHrtime(t *testing.T) {
	a := Hrtime()
	time.Sleep(time.Millisecond)
	b := Hrtime()
	assert.Greater(t, b, a)
}
