// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandle_closeLifecycle walks a handle through open, closing and
// disposed, checking that a second Close is ignored.
func TestHandle_closeLifecycle(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)
	h := timer.Handle()

	assert.False(t, h.IsClosing())
	assert.False(t, h.IsDisposed())
	assert.Equal(t, TimerHandle, h.Type())
	assert.Equal(t, "timer", h.TypeName())
	assert.Same(t, l, h.Loop())

	var calls int
	h.Close(func(got Handle) {
		calls++
		assert.Equal(t, h, got)
		assert.True(t, got.IsClosing())
	})
	h.Close(func(Handle) { t.Error("second close callback ran") })
	assert.True(t, h.IsClosing())
	assert.False(t, h.IsDisposed())

	err = timer.Start(func(Timer) {}, 1, 0)
	assert.ErrorIs(t, err, ErrHandleClosed)
	assert.ErrorIs(t, err, EINVAL)

	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, h.IsDisposed())
	assert.ErrorIs(t, timer.Again(), ErrHandleClosed)
}

func TestHandle_refCounting(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, timer.Start(func(Timer) {}, 60_000, 0))

	h := timer.Handle()
	assert.True(t, h.IsActive())
	assert.True(t, h.HasRef())
	assert.True(t, l.IsAlive())

	h.Unref()
	h.Unref()
	assert.False(t, h.HasRef())
	assert.False(t, l.IsAlive())
	n, err := l.Run(RunDefault)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.Ref()
	assert.True(t, l.IsAlive())
	require.NoError(t, timer.Stop())
	assert.False(t, h.IsActive())
	assert.False(t, l.IsAlive())
}

func TestHandle_zeroValue(t *testing.T) {
	var h Handle
	assert.True(t, h.IsClosing())
	assert.True(t, h.IsDisposed())
	assert.False(t, h.IsActive())
	assert.Nil(t, h.Loop())
	assert.Equal(t, UnknownHandle, h.Type())
	h.Close(nil)
	h.Ref()
	_, err := h.Fileno()
	assert.ErrorIs(t, err, EINVAL)
	_, err = h.AsTimer()
	var conv *ConversionError
	assert.ErrorAs(t, err, &conv)
}

func TestTimer_zeroValue(t *testing.T) {
	var timer Timer
	assert.ErrorIs(t, timer.Stop(), ErrHandleClosed)
	assert.ErrorIs(t, timer.Again(), ErrHandleClosed)
	assert.ErrorIs(t, timer.Start(func(Timer) {}, 1, 0), ErrHandleClosed)
	timer.SetRepeat(5)
	assert.Zero(t, timer.Repeat())
	assert.Zero(t, timer.DueIn())
	assert.True(t, timer.Handle().IsDisposed())
	timer.Close(nil)
}

func TestStream_zeroValue(t *testing.T) {
	var s Stream
	assert.ErrorIs(t, s.ReadStop(), ErrHandleClosed)
	assert.ErrorIs(t, s.ReadStart(nil, func(Stream, int, ReadonlyBuf, error) {}), ErrHandleClosed)
	assert.False(t, s.IsReadable())
	assert.False(t, s.IsWritable())
	assert.Zero(t, s.WriteQueueSize())
	_, err := s.Write([]ReadonlyBuf{NewBufString("x").Readonly()}, nil)
	assert.ErrorIs(t, err, ErrHandleClosed)
	_, err = s.TryWrite(nil)
	assert.ErrorIs(t, err, ErrHandleClosed)
	_, err = s.Shutdown(nil)
	assert.ErrorIs(t, err, ErrHandleClosed)
	assert.ErrorIs(t, s.SetBlocking(true), ErrHandleClosed)
	assert.True(t, s.Handle().IsDisposed())
	s.Close(nil)
}

func TestHandle_fileno(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)
	_, err = timer.Handle().Fileno()
	assert.ErrorIs(t, err, EINVAL)

	tcp, err := l.NewTCP()
	require.NoError(t, err)
	_, err = tcp.Handle().Fileno()
	assert.ErrorIs(t, err, EBADF)

	udp, err := l.NewUDP()
	require.NoError(t, err)
	require.NoError(t, udp.Bind(mustAddr(t, "127.0.0.1:0"), 0))
	fd, err := udp.Handle().Fileno()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fd, 0)

	size, err := udp.Handle().SendBufferSize(0)
	require.NoError(t, err)
	assert.Positive(t, size)
	_, err = udp.Handle().RecvBufferSize(-1)
	assert.ErrorIs(t, err, EINVAL)
}

func TestLoop_walkAndDelete(t *testing.T) {
	l, err := NewLoop()
	require.NoError(t, err)
	_, err = l.NewTimer()
	require.NoError(t, err)
	_, err = l.NewIdle()
	require.NoError(t, err)
	a, err := l.NewAsync(nil)
	require.NoError(t, err)

	var kinds []HandleType
	l.Walk(func(h Handle) { kinds = append(kinds, h.Type()) })
	assert.ElementsMatch(t, []HandleType{TimerHandle, IdleHandle, AsyncHandle}, kinds)

	assert.ErrorIs(t, l.Close(), EBUSY)
	require.NoError(t, l.Delete())
	assert.True(t, a.Handle().IsDisposed())

	_, err = l.NewTimer()
	assert.ErrorIs(t, err, ErrLoopClosed)
	_, err = l.Run(RunDefault)
	assert.ErrorIs(t, err, ErrLoopClosed)
	assert.ErrorIs(t, l.Close(), ErrLoopClosed)
	assert.NoError(t, l.Delete())
}

func TestLoop_runMode(t *testing.T) {
	l := newTestLoop(t)
	_, err := l.Run(RunMode(42))
	assert.ErrorIs(t, err, EINVAL)
	assert.Equal(t, "nowait", RunNoWait.String())
	assert.Equal(t, "unknown", RunMode(42).String())

	n, err := l.Run(RunNoWait)
	require.NoError(t, err)
	assert.Zero(t, n)
	before := l.Now()
	time.Sleep(2 * time.Millisecond)
	l.UpdateTime()
	assert.Greater(t, l.Now(), before)
	assert.Positive(t, l.Hrtime())
}

func TestDefaultLoop(t *testing.T) {
	a, err := DefaultLoop()
	require.NoError(t, err)
	b, err := DefaultLoop()
	require.NoError(t, err)
	assert.Same(t, a, b)
	require.NoError(t, a.Close())

	c, err := DefaultLoop()
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	require.NoError(t, c.Close())
}
