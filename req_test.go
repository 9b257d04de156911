// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReq_sideDataReleased checks that every completion leaves the side data
// attached while its callback runs, and detached once it returned.
func TestReq_sideDataReleased(t *testing.T) {
	l := newTestLoop(t)

	var (
		reqs  []Req
		inCb  = map[ReqType]bool{}
		track = func(r Req) {
			t.Helper()
			require.NotNil(t, r.r)
			assert.NotNil(t, r.r.Data, r.Type().String())
			reqs = append(reqs, r)
		}
		seen = func(r Req) {
			inCb[r.Type()] = r.r.Data != nil
		}
	)

	// tcp connect to a listener that closes whatever it accepts
	server, err := l.NewTCP()
	require.NoError(t, err)
	require.NoError(t, server.Bind(mustAddr(t, "127.0.0.1:0"), 0))
	require.NoError(t, server.Stream().Listen(8, func(s Stream, err error) {
		require.NoError(t, err)
		conn, err := l.NewTCP()
		require.NoError(t, err)
		require.NoError(t, s.Accept(conn.Stream()))
		conn.Close(nil)
		s.Close(nil)
	}))
	bound, err := server.Getsockname()
	require.NoError(t, err)
	client, err := l.NewTCP()
	require.NoError(t, err)
	connect, err := client.Connect(bound, func(req ConnectReq, err error) {
		assert.NoError(t, err)
		seen(req.Req())
		client.Close(nil)
	})
	require.NoError(t, err)
	track(connect.Req())

	// write then shutdown over a socketpair
	a, b := newSocketpair(t, l)
	write, err := a.Stream().Write([]ReadonlyBuf{NewBufString("x").Readonly()}, func(req WriteReq, err error) {
		seen(req.Req())
	})
	require.NoError(t, err)
	track(write.Req())
	shutdown, err := a.Stream().Shutdown(func(req ShutdownReq, err error) {
		seen(req.Req())
		a.Close(nil)
		b.Close(nil)
	})
	require.NoError(t, err)
	track(shutdown.Req())

	stat, err := l.FsStat(filepath.Join(t.TempDir(), "missing"), func(req FsReq, err error) {
		assert.ErrorIs(t, err, ENOENT)
		seen(req.Req())
	})
	require.NoError(t, err)
	track(stat.Req())

	work, err := l.QueueWork(func(WorkReq) {}, func(req WorkReq, err error) {
		assert.NoError(t, err)
		seen(req.Req())
	})
	require.NoError(t, err)
	track(work.Req())

	lookup, err := l.GetAddrInfo("127.0.0.1", "", &AddrInfo{Flags: AINumericHost}, func(req GetAddrInfoReq, res []AddrInfo, err error) {
		assert.NoError(t, err)
		assert.NotEmpty(t, res)
		seen(req.Req())
	})
	require.NoError(t, err)
	track(lookup.Req())

	runUntilDone(t, l, 10*time.Second)

	assert.Equal(t, map[ReqType]bool{
		ConnectReqType:     true,
		WriteReqType:       true,
		ShutdownReqType:    true,
		FsReqType:          true,
		WorkReqType:        true,
		GetAddrInfoReqType: true,
	}, inCb)
	for _, r := range reqs {
		assert.Nil(t, r.r.Data, r.Type().String())
		assert.False(t, r.IsActive(), r.Type().String())
	}
}

// TestReq_sideDataReleasedOnCancel covers the cancelled path of a work
// request.
func TestReq_sideDataReleasedOnCancel(t *testing.T) {
	l := newTestLoop(t)
	release := make(chan struct{})
	started := make(chan struct{}, ThreadpoolSize())
	for i := 0; i < ThreadpoolSize(); i++ {
		_, err := l.QueueWork(func(WorkReq) {
			started <- struct{}{}
			<-release
		}, nil)
		require.NoError(t, err)
	}
	for i := 0; i < ThreadpoolSize(); i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("pool did not start")
		}
	}

	var held bool
	queued, err := l.QueueWork(func(WorkReq) {}, func(req WorkReq, err error) {
		assert.ErrorIs(t, err, ECANCELED)
		held = req.Req().r.Data != nil
	})
	require.NoError(t, err)
	require.NoError(t, queued.Req().Cancel())
	close(release)

	runUntilDone(t, l, 10*time.Second)
	assert.True(t, held)
	assert.Nil(t, queued.Req().r.Data)
}
