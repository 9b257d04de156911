// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"bytes"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTimer_cascade runs a repeating unreferenced timer next to a one shot
// job, the loop exiting once only the unreferenced timer is left.
func TestTimer_cascade(t *testing.T) {
	l := newTestLoop(t)

	gc, err := l.NewTimer()
	require.NoError(t, err)
	var gcCalls int
	require.NoError(t, gc.StartDuration(func(Timer) { gcCalls++ }, 0, 20*time.Millisecond))
	gc.Handle().Unref()

	job, err := l.NewTimer()
	require.NoError(t, err)
	var jobCalls int
	var jobAt uint64
	start := l.Now()
	require.NoError(t, job.StartDuration(func(Timer) {
		jobCalls++
		jobAt = l.Now()
	}, 90*time.Millisecond, 0))

	runUntilDone(t, l, 10*time.Second)

	assert.Equal(t, 1, jobCalls)
	assert.GreaterOrEqual(t, jobAt-start, uint64(90))
	assert.GreaterOrEqual(t, gcCalls, 4)
	assert.True(t, gc.Handle().IsActive())
	assert.False(t, job.Handle().IsActive())
}

func TestTimer_zeroTimeoutFiresOnce(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)
	var calls int
	require.NoError(t, timer.Start(func(Timer) { calls++ }, 0, 0))
	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	runUntilDone(t, l, 5*time.Second)
	assert.Equal(t, 1, calls)
}

func TestTimer_repeatAndAgain(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)

	assert.ErrorIs(t, timer.Again(), EINVAL)
	assert.ErrorIs(t, timer.Start(nil, 1, 0), ErrNilCallback)

	var calls int
	require.NoError(t, timer.Start(func(h Timer) {
		calls++
		if calls == 3 {
			require.NoError(t, h.Stop())
		}
	}, 1, 1))
	assert.Equal(t, uint64(1), timer.Repeat())
	runUntilDone(t, l, 5*time.Second)
	assert.Equal(t, 3, calls)

	timer.SetRepeat(50)
	require.NoError(t, timer.Again())
	assert.True(t, timer.Handle().IsActive())
	assert.InDelta(t, 50, timer.DueIn(), 1)
	require.NoError(t, timer.Stop())
	assert.Zero(t, timer.DueIn())
}

func TestDurationMillis(t *testing.T) {
	assert.Zero(t, durationMillis(-time.Second))
	assert.Zero(t, durationMillis(0))
	assert.Equal(t, uint64(1), durationMillis(time.Nanosecond))
	assert.Equal(t, uint64(1500), durationMillis(1500*time.Millisecond))
}

// TestLoop_recoversCallbackPanic checks that a panicking callback is logged
// and counted, and that the loop carries on.
func TestLoop_recoversCallbackPanic(t *testing.T) {
	var out bytes.Buffer
	l := newTestLoop(t, WithLogger(NewJSONLogger(&out, logiface.LevelDebug)))

	boom, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, boom.Start(func(Timer) { panic("boom") }, 0, 0))

	after, err := l.NewTimer()
	require.NoError(t, err)
	var ran bool
	require.NoError(t, after.Start(func(Timer) { ran = true }, 1, 0))

	runUntilDone(t, l, 5*time.Second)
	assert.True(t, ran)
	assert.Equal(t, uint64(1), l.RecoveredPanics())
	assert.Contains(t, out.String(), `"callback":"timer"`)
	assert.Contains(t, out.String(), "uv: callback panicked")
}

func TestWithLogRateLimit(t *testing.T) {
	_, err := NewLoop(WithLogRateLimit(map[time.Duration]int{time.Second: 0}))
	assert.Error(t, err)

	var out bytes.Buffer
	l := newTestLoop(t,
		WithLogger(NewJSONLogger(&out, logiface.LevelInformational)),
		WithLogRateLimit(map[time.Duration]int{time.Hour: 1}),
	)
	timer, err := l.NewTimer()
	require.NoError(t, err)
	var calls int
	require.NoError(t, timer.Start(func(h Timer) {
		calls++
		if calls == 3 {
			_ = h.Stop()
		}
		panic("again")
	}, 1, 1))
	runUntilDone(t, l, 5*time.Second)
	assert.Equal(t, uint64(3), l.RecoveredPanics())
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("uv: callback panicked")))
}
