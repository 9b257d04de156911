// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAsync_coalescing sends from another goroutine in a tight loop, the
// callback running at least once and never more often than sends.
func TestAsync_coalescing(t *testing.T) {
	l := newTestLoop(t)

	var calls int
	async, err := l.NewAsync(func(Async) { calls++ })
	require.NoError(t, err)

	var failed atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if async.Send() != nil {
				failed.Add(1)
			}
		}
	}()

	// close once the sender finished and the loop had a full iteration to
	// deliver the last send
	poll, err := l.NewTimer()
	require.NoError(t, err)
	var finished bool
	require.NoError(t, poll.Start(func(h Timer) {
		if finished {
			async.Close(nil)
			h.Close(nil)
			return
		}
		select {
		case <-done:
			finished = true
		default:
		}
	}, 1, 1))

	runUntilDone(t, l, 10*time.Second)
	assert.Zero(t, failed.Load())
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, 100)
}

func TestAsync_nilCallbackWakesOnly(t *testing.T) {
	l := newTestLoop(t)
	async, err := l.NewAsync(nil)
	require.NoError(t, err)
	assert.True(t, async.Handle().IsActive())
	require.NoError(t, async.Send())
	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	async.Close(nil)
}

func TestLoopWatchers_phaseOrder(t *testing.T) {
	l := newTestLoop(t)
	var order []string

	idle, err := l.NewIdle()
	require.NoError(t, err)
	prepare, err := l.NewPrepare()
	require.NoError(t, err)
	check, err := l.NewCheck()
	require.NoError(t, err)

	require.NoError(t, check.Start(func(h Check) {
		order = append(order, "check")
		require.NoError(t, h.Stop())
	}))
	require.NoError(t, prepare.Start(func(h Prepare) {
		order = append(order, "prepare")
		require.NoError(t, h.Stop())
	}))
	require.NoError(t, idle.Start(func(h Idle) {
		order = append(order, "idle")
		require.NoError(t, h.Stop())
	}))
	// no-op while active
	assert.NoError(t, idle.Start(nil))
	assert.Zero(t, l.BackendTimeout())

	runUntilDone(t, l, 5*time.Second)
	assert.Equal(t, []string{"idle", "prepare", "check"}, order)

	assert.ErrorIs(t, idle.Start(nil), ErrNilCallback)
	h, err := idle.Handle().AsIdle()
	require.NoError(t, err)
	assert.Equal(t, idle, h)
}
