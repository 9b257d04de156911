// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// listenEcho starts a server on server that echoes every connection back,
// closing each connection at EOF.
func listenEcho(t *testing.T, l *Loop, server Stream, writeErrs *[]error) {
	t.Helper()
	require.NoError(t, server.Listen(128, func(s Stream, err error) {
		require.NoError(t, err)
		var conn Stream
		switch s.Handle().Type() {
		case TCPHandle:
			c, err := l.NewTCP()
			require.NoError(t, err)
			conn = c.Stream()
		default:
			c, err := l.NewPipe(false)
			require.NoError(t, err)
			conn = c.Stream()
		}
		require.NoError(t, s.Accept(conn))
		assert.ErrorIs(t, s.Accept(conn), EAGAIN)
		require.NoError(t, conn.ReadStart(nil, func(c Stream, nread int, buf ReadonlyBuf, err error) {
			if err != nil {
				assert.ErrorIs(t, err, EOF)
				c.Close(nil)
				return
			}
			if nread == 0 {
				return
			}
			b := NewBufBytes(append([]byte(nil), buf.Bytes()...))
			_, err = c.Write([]ReadonlyBuf{b.Readonly()}, func(_ WriteReq, err error) {
				*writeErrs = append(*writeErrs, err)
			})
			require.NoError(t, err)
		}))
		s.Close(nil)
	}))
}

// sendAndCollect writes payload on a connected stream, half closes it once
// the echo arrived, and closes it at EOF.
func sendAndCollect(t *testing.T, s Stream, payload string, received *[]byte) {
	t.Helper()
	require.NoError(t, s.ReadStart(nil, func(c Stream, nread int, buf ReadonlyBuf, err error) {
		if err != nil {
			assert.ErrorIs(t, err, EOF)
			c.Close(nil)
			return
		}
		assert.Equal(t, nread, buf.Len())
		*received = append(*received, buf.Bytes()...)
		if len(*received) == len(payload) {
			_, err := c.Shutdown(func(_ ShutdownReq, err error) { assert.NoError(t, err) })
			require.NoError(t, err)
		}
	}))
	_, err := s.Write([]ReadonlyBuf{NewBufString(payload).Readonly()}, nil)
	require.NoError(t, err)
}

// TestTCP_echoServer accepts one connection and echoes HELLO back, the loop
// exiting once both sides closed.
func TestTCP_echoServer(t *testing.T) {
	l := newTestLoop(t)

	server, err := l.NewTCP()
	require.NoError(t, err)
	require.NoError(t, server.Bind(mustAddr(t, "0.0.0.0:0"), 0))
	var writeErrs []error
	listenEcho(t, l, server.Stream(), &writeErrs)
	bound, err := server.Getsockname()
	require.NoError(t, err)
	require.NotZero(t, bound.Port())

	client, err := l.NewTCP()
	require.NoError(t, err)
	var (
		received  []byte
		connected bool
	)
	req, err := client.Connect(netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), bound.Port()), func(req ConnectReq, err error) {
		require.NoError(t, err)
		connected = true
		assert.Equal(t, client.Stream(), req.Handle())
		peer, err := client.Getpeername()
		require.NoError(t, err)
		assert.Equal(t, bound.Port(), peer.Port())
		sendAndCollect(t, req.Handle(), "HELLO", &received)
	})
	require.NoError(t, err)
	assert.Equal(t, ConnectReqType, req.Req().Type())
	assert.True(t, req.Req().IsActive())

	runUntilDone(t, l, 10*time.Second)

	assert.True(t, connected)
	assert.Equal(t, "HELLO", string(received))
	require.NotEmpty(t, writeErrs)
	for _, err := range writeErrs {
		assert.NoError(t, err)
	}
	assert.True(t, client.Handle().IsDisposed())
	assert.True(t, server.Handle().IsDisposed())
}

func TestTCP_connectRefused(t *testing.T) {
	l := newTestLoop(t)

	reserved, err := l.NewTCP()
	require.NoError(t, err)
	require.NoError(t, reserved.Bind(mustAddr(t, "127.0.0.1:0"), 0))
	addr, err := reserved.Getsockname()
	require.NoError(t, err)
	reserved.Close(nil)
	_, err = l.Run(RunDefault)
	require.NoError(t, err)

	client, err := l.NewTCP()
	require.NoError(t, err)
	var got error
	_, err = client.Connect(addr, func(_ ConnectReq, err error) {
		got = err
		client.Close(nil)
	})
	require.NoError(t, err)
	runUntilDone(t, l, 10*time.Second)
	assert.ErrorIs(t, got, ECONNREFUSED)
}

func TestTCP_operationsAfterClose(t *testing.T) {
	l := newTestLoop(t)
	h, err := l.NewTCP()
	require.NoError(t, err)
	require.NoError(t, h.NoDelay(true))
	require.NoError(t, h.KeepAlive(true, 30))
	assert.ErrorIs(t, h.KeepAlive(true, 0), EINVAL)
	require.NoError(t, h.SimultaneousAccepts(false))
	h.Close(nil)

	assert.ErrorIs(t, h.Bind(mustAddr(t, "127.0.0.1:0"), 0), ErrHandleClosed)
	_, err = h.Connect(mustAddr(t, "127.0.0.1:1"), nil)
	assert.ErrorIs(t, err, ErrHandleClosed)
	assert.ErrorIs(t, h.Stream().Listen(1, func(Stream, error) {}), ErrHandleClosed)
	assert.ErrorIs(t, h.Stream().ReadStart(nil, func(Stream, int, ReadonlyBuf, error) {}), ErrHandleClosed)
	_, err = h.Stream().Write(nil, nil)
	assert.ErrorIs(t, err, ErrHandleClosed)
	assert.ErrorIs(t, h.CloseReset(nil), ErrHandleClosed)
}

func TestStream_nilCallbacks(t *testing.T) {
	l := newTestLoop(t)
	h, err := l.NewTCP()
	require.NoError(t, err)
	assert.ErrorIs(t, h.Stream().Listen(1, nil), ErrNilCallback)
	assert.ErrorIs(t, h.Stream().ReadStart(nil, nil), ErrNilCallback)
	assert.ErrorIs(t, h.Stream().ReadStart(nil, func(Stream, int, ReadonlyBuf, error) {}), ENOTCONN)
}

func newSocketpair(t *testing.T, l *Loop) (Pipe, Pipe) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a, err := l.NewPipe(false)
	require.NoError(t, err)
	require.NoError(t, a.Open(fds[0]))
	b, err := l.NewPipe(false)
	require.NoError(t, err)
	require.NoError(t, b.Open(fds[1]))
	return a, b
}

// TestStream_writeOrder checks that write callbacks run in submission order.
func TestStream_writeOrder(t *testing.T) {
	l := newTestLoop(t)
	a, b := newSocketpair(t, l)
	assert.True(t, a.Stream().IsReadable())
	assert.True(t, a.Stream().IsWritable())

	var order []int
	big := make([]byte, 1<<20)
	for i, payload := range [][]byte{big, []byte("x"), big, []byte("y")} {
		_, err := a.Stream().Write([]ReadonlyBuf{NewBufBytes(payload).Readonly()}, func(_ WriteReq, err error) {
			assert.NoError(t, err)
			order = append(order, i)
			if len(order) == 4 {
				a.Close(nil)
			}
		})
		require.NoError(t, err)
	}
	assert.Positive(t, a.Stream().WriteQueueSize())

	var total int
	require.NoError(t, b.Stream().ReadStart(nil, func(s Stream, nread int, _ ReadonlyBuf, err error) {
		total += nread
		if err != nil {
			assert.ErrorIs(t, err, EOF)
			s.Close(nil)
		}
	}))

	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
	assert.Equal(t, 2*len(big)+2, total)
}

func TestStream_tryWrite(t *testing.T) {
	l := newTestLoop(t)
	a, b := newSocketpair(t, l)

	payload := []ReadonlyBuf{NewBufString("ab").Readonly(), NewBufString("cd").Readonly()}
	n, err := a.Stream().TryWrite(payload)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// fill the socket buffer until it pushes back
	chunk := []ReadonlyBuf{NewBufBytes(make([]byte, 64<<10)).Readonly()}
	for {
		n, err = a.Stream().TryWrite(chunk)
		if err != nil {
			assert.ErrorIs(t, err, EAGAIN)
			break
		}
		assert.LessOrEqual(t, n, chunk[0].Len())
	}

	a.Close(nil)
	b.Close(nil)
	runUntilDone(t, l, 5*time.Second)
}

func TestPipe_bindConnect(t *testing.T) {
	l := newTestLoop(t)
	path := filepath.Join(t.TempDir(), "s.sock")

	server, err := l.NewPipe(false)
	require.NoError(t, err)
	require.NoError(t, server.Bind(path))
	name, err := server.Getsockname()
	require.NoError(t, err)
	assert.Equal(t, path, name)
	var writeErrs []error
	listenEcho(t, l, server.Stream(), &writeErrs)

	client, err := l.NewPipe(false)
	require.NoError(t, err)
	var received []byte
	_, err = client.Connect(path, func(req ConnectReq, err error) {
		require.NoError(t, err)
		peer, err := client.Getpeername()
		require.NoError(t, err)
		assert.Equal(t, path, peer)
		sendAndCollect(t, req.Handle(), "over a pipe", &received)
	})
	require.NoError(t, err)

	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, "over a pipe", string(received))
}

func TestPipe_connectMissing(t *testing.T) {
	l := newTestLoop(t)
	client, err := l.NewPipe(false)
	require.NoError(t, err)
	var got error
	_, err = client.Connect(filepath.Join(t.TempDir(), "missing.sock"), func(_ ConnectReq, err error) {
		got = err
		client.Close(nil)
	})
	require.NoError(t, err)
	runUntilDone(t, l, 5*time.Second)
	assert.ErrorIs(t, got, ENOENT)
}

// TestPipe_write2 passes a bound TCP socket over an IPC pipe.
func TestPipe_write2(t *testing.T) {
	l := newTestLoop(t)
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a, err := l.NewPipe(true)
	require.NoError(t, err)
	require.NoError(t, a.Open(fds[0]))
	b, err := l.NewPipe(true)
	require.NoError(t, err)
	require.NoError(t, b.Open(fds[1]))
	assert.True(t, b.IPC())

	server, err := l.NewTCP()
	require.NoError(t, err)
	require.NoError(t, server.Bind(mustAddr(t, "127.0.0.1:0"), 0))
	want, err := server.Getsockname()
	require.NoError(t, err)

	plain, other := newSocketpair(t, l)
	_, err = plain.Stream().Write2(server.Stream(), []ReadonlyBuf{NewBufString("x").Readonly()}, nil)
	assert.ErrorIs(t, err, EINVAL)
	plain.Close(nil)
	other.Close(nil)

	var got netip.AddrPort
	require.NoError(t, b.Stream().ReadStart(nil, func(s Stream, nread int, _ ReadonlyBuf, err error) {
		require.NoError(t, err)
		if nread == 0 {
			return
		}
		require.Equal(t, 1, b.PendingCount())
		assert.Equal(t, TCPHandle, b.PendingType())
		received, err := l.NewTCP()
		require.NoError(t, err)
		require.NoError(t, s.Accept(received.Stream()))
		assert.Zero(t, b.PendingCount())
		got, err = received.Getsockname()
		assert.NoError(t, err)
		received.Close(nil)
		s.Close(nil)
	}))

	_, err = a.Stream().Write2(server.Stream(), []ReadonlyBuf{NewBufString("x").Readonly()}, func(_ WriteReq, err error) {
		assert.NoError(t, err)
		a.Close(nil)
		server.Close(nil)
	})
	require.NoError(t, err)

	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, want, got)
}

func TestStream_setBlocking(t *testing.T) {
	l := newTestLoop(t)
	a, b := newSocketpair(t, l)
	require.NoError(t, a.Stream().SetBlocking(true))
	n, err := a.Stream().TryWrite([]ReadonlyBuf{NewBufString("abc").Readonly()})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, a.Stream().SetBlocking(false))
	a.Close(nil)
	b.Close(nil)
	runUntilDone(t, l, 5*time.Second)
}
