// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueWork(t *testing.T) {
	l := newTestLoop(t)
	var (
		ran    atomic.Int32
		after  []int
		reqs   = make([]WorkReq, 8)
		worked = func(*WorkReq) { ran.Add(1) }
	)
	for i := range reqs {
		require.Zero(t, l.QueueWork(&reqs[i], worked, func(req *WorkReq, status int) {
			assert.False(t, req.IsActive())
			after = append(after, status)
		}))
		assert.True(t, reqs[i].IsActive())
		assert.Equal(t, WorkReqType, reqs[i].Type())
	}
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, int32(len(reqs)), ran.Load())
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 0}, after)
}

func TestQueueWork_nilWork(t *testing.T) {
	l := newTestLoop(t)
	var req WorkReq
	assert.Equal(t, EINVAL, l.QueueWork(&req, nil, nil))
}

func TestCancel(t *testing.T) {
	l := newTestLoop(t)

	// occupy every pool goroutine so the last request stays queued
	release := make(chan struct{})
	started := make(chan struct{}, ThreadpoolSize())
	blockers := make([]WorkReq, ThreadpoolSize())
	for i := range blockers {
		require.Zero(t, l.QueueWork(&blockers[i], func(*WorkReq) {
			started <- struct{}{}
			<-release
		}, nil))
	}
	for range blockers {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("pool did not start")
		}
	}

	var (
		queued WorkReq
		status = 1
	)
	require.Zero(t, l.QueueWork(&queued, func(*WorkReq) {
		t.Error("cancelled work ran")
	}, func(_ *WorkReq, s int) { status = s }))
	assert.Zero(t, Cancel(&queued.Req))
	assert.Equal(t, EBUSY, Cancel(&queued.Req))
	assert.Equal(t, EBUSY, Cancel(&blockers[0].Req))

	close(release)
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, ECANCELED, status)
}

func TestCancel_notCancellable(t *testing.T) {
	var req ConnectReq
	assert.Equal(t, EINVAL, Cancel(&req.Req))
}

func TestRandom(t *testing.T) {
	l := newTestLoop(t)
	buf := make([]byte, 32)
	assert.Zero(t, l.Random(nil, buf, 0, nil))
	assert.NotEqual(t, make([]byte, 32), buf)

	var (
		req  RandomReq
		got  []byte
		code = 1
	)
	async := make([]byte, 16)
	require.Zero(t, l.Random(&req, async, 0, func(_ *RandomReq, status int, b []byte) {
		code, got = status, b
	}))
	runWithDeadline(t, l, 5*time.Second)
	assert.Zero(t, code)
	assert.Len(t, got, 16)
	assert.Equal(t, EINVAL, l.Random(nil, buf, 1, nil))
}

func TestThreadpoolSizeFromEnv(t *testing.T) {
	for _, tc := range []struct {
		env  string
		want int
	}{
		{"", 4},
		{"x", 4},
		{"8", 8},
		{"0", 1},
		{"-3", 1},
		{"100000", 1024},
	} {
		t.Setenv("UV_THREADPOOL_SIZE", tc.env)
		assert.Equal(t, tc.want, threadpoolSizeFromEnv(), tc.env)
	}
}

func TestThreadpoolSize_fixedOnceStarted(t *testing.T) {
	l := newTestLoop(t)
	var req WorkReq
	require.Zero(t, l.QueueWork(&req, func(*WorkReq) {}, nil))
	runWithDeadline(t, l, 5*time.Second)

	size := ThreadpoolSize()
	t.Setenv("UV_THREADPOOL_SIZE", "1023")
	if size == 1023 {
		t.Setenv("UV_THREADPOOL_SIZE", "1022")
	}
	assert.Equal(t, size, ThreadpoolSize())
}
