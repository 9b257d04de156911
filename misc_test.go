// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestGuessHandle(t *testing.T) {
	assert.Equal(t, UnknownHandle, GuessHandle(-1))

	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, FileHandle, GuessHandle(int(f.Fd())))

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	assert.Equal(t, NamedPipeHandle, GuessHandle(fds[0]))

	tcp, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(tcp)
	assert.Equal(t, TCPHandle, GuessHandle(tcp))

	udp, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(udp)
	assert.Equal(t, UDPHandle, GuessHandle(udp))
}

func TestThreadpoolSize_fixedOnceStarted(t *testing.T) {
	l := newTestLoop(t)
	_, err := l.QueueWork(func(WorkReq) {}, nil)
	require.NoError(t, err)
	runUntilDone(t, l, 5*time.Second)

	size := ThreadpoolSize()
	assert.GreaterOrEqual(t, size, 1)
	t.Setenv("UV_THREADPOOL_SIZE", strconv.Itoa(size+1))
	assert.Equal(t, size, ThreadpoolSize())
}
