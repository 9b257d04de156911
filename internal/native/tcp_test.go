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
	"golang.org/x/sys/unix"
)

func listenLoopback(t *testing.T, l *Loop, server *TCP, cb ConnectionCb) *unix.SockaddrInet4 {
	t.Helper()
	require.Zero(t, l.InitTCP(server))
	require.Zero(t, server.Bind(&unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}, 0))
	require.Zero(t, server.Listen(16, cb))
	sa, code := server.Getsockname()
	require.Zero(t, code)
	addr, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	require.NotZero(t, addr.Port)
	return addr
}

func TestTCP_echo(t *testing.T) {
	l := newTestLoop(t)

	var (
		server TCP
		peer   TCP
		writes []*WriteReq
	)
	addr := listenLoopback(t, l, &server, func(s *Stream, status int) {
		require.Zero(t, status)
		require.Zero(t, l.InitTCP(&peer))
		require.Zero(t, s.Accept(&peer.Stream))
		require.Zero(t, peer.ReadStart(testAlloc, func(s *Stream, nread int, buf *Buf) {
			switch {
			case nread > 0:
				// echo from a copy, the read buffer is reused
				b := append([]byte(nil), buf.Bytes()[:nread]...)
				req := new(WriteReq)
				writes = append(writes, req)
				require.Zero(t, s.Write(req, []Buf{BufInit(b)}, nil))
			case nread == EOF:
				s.Close(nil)
			}
		}))
		server.Close(nil)
	})

	var (
		client    TCP
		connect   ConnectReq
		write     WriteReq
		shutdown  ShutdownReq
		received  []byte
		connected = 1
		wrote     = 1
		shut      = 1
		gotEOF    bool
	)
	require.Zero(t, l.InitTCP(&client))
	require.Zero(t, client.Connect(&connect, addr, func(req *ConnectReq, status int) {
		connected = status
		if status != 0 {
			return
		}
		s := req.Handle()
		require.Zero(t, s.ReadStart(testAlloc, func(s *Stream, nread int, buf *Buf) {
			switch {
			case nread > 0:
				received = append(received, buf.Bytes()[:nread]...)
				if len(received) == len("hello") {
					require.Zero(t, s.Shutdown(&shutdown, func(_ *ShutdownReq, status int) { shut = status }))
				}
			case nread == EOF:
				gotEOF = true
				s.Close(nil)
			case nread < 0:
				t.Errorf("client read: %s", ErrName(nread))
				s.Close(nil)
			}
		}))
		require.Zero(t, s.Write(&write, []Buf{BufInit([]byte("hello"))}, func(_ *WriteReq, status int) { wrote = status }))
	}))
	assert.Equal(t, EALREADY, client.Connect(&connect, addr, nil))

	runWithDeadline(t, l, 10*time.Second)

	assert.Zero(t, connected)
	assert.Zero(t, wrote)
	assert.Zero(t, shut)
	assert.True(t, gotEOF)
	assert.Equal(t, "hello", string(received))
	assert.NotEmpty(t, writes)
	assert.True(t, client.IsClosed())
	assert.True(t, peer.IsClosed())
	assert.True(t, server.IsClosed())
}

func TestTCP_connectRefused(t *testing.T) {
	l := newTestLoop(t)

	// grab a free port, then release it
	var reserved TCP
	addr := listenLoopback(t, l, &reserved, func(*Stream, int) {})
	reserved.Close(nil)
	l.Run(RunDefault)

	var (
		client  TCP
		connect ConnectReq
		status  int
	)
	require.Zero(t, l.InitTCP(&client))
	require.Zero(t, client.Connect(&connect, addr, func(_ *ConnectReq, s int) {
		status = s
		client.Close(nil)
	}))
	runWithDeadline(t, l, 10*time.Second)
	assert.Equal(t, ECONNREFUSED, status)
}

func TestTCP_bindInUse(t *testing.T) {
	l := newTestLoop(t)
	var first, second TCP
	addr := listenLoopback(t, l, &first, func(*Stream, int) {})

	require.Zero(t, l.InitTCP(&second))
	// the failure surfaces on listen
	require.Zero(t, second.Bind(&unix.SockaddrInet4{Addr: addr.Addr, Port: addr.Port}, 0))
	assert.Equal(t, EADDRINUSE, second.Listen(16, func(*Stream, int) {}))
}

func TestTCP_options(t *testing.T) {
	l := newTestLoop(t)
	var h TCP
	require.Zero(t, l.InitTCPEx(&h, unix.AF_INET))
	assert.Zero(t, h.NoDelay(true))
	assert.Zero(t, h.KeepAlive(true, 60))
	assert.Equal(t, EINVAL, h.KeepAlive(true, 0))
	assert.Zero(t, h.KeepAlive(false, 0))
	assert.Zero(t, h.SimultaneousAccepts(true))
	_, code := h.Getpeername()
	assert.Equal(t, ENOTCONN, code)
	assert.Equal(t, EINVAL, l.InitTCPEx(new(TCP), 0x100))

	var size int
	assert.Zero(t, h.SendBufferSize(&size))
	assert.Positive(t, size)
}

func TestTCP_readStartNotConnected(t *testing.T) {
	l := newTestLoop(t)
	var h TCP
	require.Zero(t, l.InitTCP(&h))
	assert.Equal(t, EINVAL, h.ReadStart(nil, nil))
	assert.Equal(t, ENOTCONN, h.ReadStart(testAlloc, func(*Stream, int, *Buf) {}))
}
