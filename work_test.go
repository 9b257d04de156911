// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}

func TestLoop_QueueWork(t *testing.T) {
	l := newTestLoop(t)
	var (
		result atomic.Int64
		after  int
	)
	req, err := l.QueueWork(func(WorkReq) {
		result.Store(int64(fib(20)))
	}, func(r WorkReq, err error) {
		assert.NoError(t, err)
		assert.Equal(t, WorkReqType, r.Req().Type())
		after++
	})
	require.NoError(t, err)
	assert.True(t, req.Req().IsActive())
	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, int64(6765), result.Load())
	assert.Equal(t, 1, after)
	assert.False(t, req.Req().IsActive())

	_, err = l.QueueWork(nil, nil)
	assert.ErrorIs(t, err, ErrNilCallback)
	assert.ErrorIs(t, err, EINVAL)

	// after is optional
	var ran atomic.Bool
	_, err = l.QueueWork(func(WorkReq) { ran.Store(true) }, nil)
	require.NoError(t, err)
	runUntilDone(t, l, 10*time.Second)
	assert.True(t, ran.Load())
}

// TestLoop_QueueWork_cancelOnSignal queues more work than there are pool
// goroutines, then cancels all of it from a SIGINT handler. Work that had
// not started completes with ECANCELED, everything else completes normally.
func TestLoop_QueueWork_cancelOnSignal(t *testing.T) {
	const count = 25
	l := newTestLoop(t)
	release := make(chan struct{})

	var (
		reqs       []WorkReq
		calls      [count]int
		cancelled  int
		completed  int
		successful int
	)
	for i := range count {
		req, err := l.QueueWork(func(WorkReq) {
			<-release
			_ = fib(10)
		}, func(_ WorkReq, err error) {
			calls[i]++
			switch {
			case err == nil:
				completed++
			default:
				assert.ErrorIs(t, err, ECANCELED)
				cancelled++
			}
		})
		require.NoError(t, err)
		reqs = append(reqs, req)
	}

	sig, err := l.NewSignal()
	require.NoError(t, err)
	require.NoError(t, sig.Start(func(h Signal, signum int) {
		assert.Equal(t, int(unix.SIGINT), signum)
		for _, r := range reqs {
			if r.Req().Cancel() == nil {
				successful++
			}
		}
		close(release)
		h.Close(nil)
	}, int(unix.SIGINT)))

	timer, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, timer.StartDuration(func(h Timer) {
		require.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))
		h.Close(nil)
	}, 10*time.Millisecond, 0))

	runUntilDone(t, l, 30*time.Second)

	for i, n := range calls {
		assert.Equal(t, 1, n, "after callback %d", i)
	}
	assert.Equal(t, count, completed+cancelled)
	assert.Equal(t, successful, cancelled)
	if ThreadpoolSize() < count {
		assert.Positive(t, cancelled)
	}
}
