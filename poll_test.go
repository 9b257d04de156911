// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPoll_readable(t *testing.T) {
	l := newTestLoop(t)
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := l.NewPollSocket(fds[0])
	require.NoError(t, err)
	assert.ErrorIs(t, p.Start(PollReadable, nil), ErrNilCallback)

	var events int
	require.NoError(t, p.Start(PollReadable, func(h Poll, ev int, err error) {
		require.NoError(t, err)
		events |= ev
		b := make([]byte, 8)
		_, _ = unix.Read(fds[0], b)
		require.NoError(t, h.Stop())
		h.Close(nil)
	}))
	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	runUntilDone(t, l, 10*time.Second)
	assert.NotZero(t, events&PollReadable)
	assert.Zero(t, events&PollWritable)
}

func TestFsPoll_change(t *testing.T) {
	l := newTestLoop(t)
	path := filepath.Join(t.TempDir(), "watched")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	h, err := l.NewFsPoll()
	require.NoError(t, err)
	var prev, curr Stat
	require.NoError(t, h.StartDuration(func(h FsPoll, p, c Stat, err error) {
		require.NoError(t, err)
		prev, curr = p, c
		h.Close(nil)
	}, path, 10*time.Millisecond))
	assert.Equal(t, path, h.Path())

	writer, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, writer.StartDuration(func(w Timer) {
		require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
		w.Close(nil)
	}, 50*time.Millisecond, 0))

	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, uint64(1), prev.Size)
	assert.Equal(t, uint64(3), curr.Size)
}

func TestFsEvent_change(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()

	h, err := l.NewFsEvent()
	require.NoError(t, err)
	var (
		names  []string
		events int
	)
	require.NoError(t, h.Start(func(h FsEvent, filename string, ev int, err error) {
		require.NoError(t, err)
		names = append(names, filename)
		events |= ev
		h.Close(nil)
	}, dir, 0))
	assert.Equal(t, dir, h.Path())

	writer, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, writer.StartDuration(func(w Timer) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new"), nil, 0o644))
		w.Close(nil)
	}, 20*time.Millisecond, 0))

	runUntilDone(t, l, 10*time.Second)
	require.NotEmpty(t, names)
	assert.NotZero(t, events&(FsEventRename|FsEventChange))
}

func TestLoop_NewTTY_notATerminal(t *testing.T) {
	l := newTestLoop(t)
	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()
	_, err = l.NewTTY(int(f.Fd()), false)
	assert.ErrorIs(t, err, EINVAL)
	_, err = l.NewTTY(-1, true)
	assert.ErrorIs(t, err, EINVAL)
}
