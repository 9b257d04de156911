// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package uv

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openPty returns the master and slave descriptors of a new pseudo terminal
// sized 80x24.
func openPty(t *testing.T) (master, slave int) {
	t.Helper()
	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() { _ = unix.Close(master) })
	require.NoError(t, unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0))
	n, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	require.NoError(t, err)
	slave, err = unix.Open("/dev/pts/"+strconv.Itoa(n), unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(slave) })
	require.NoError(t, unix.IoctlSetWinsize(master, unix.TIOCSWINSZ, &unix.Winsize{Row: 24, Col: 80}))
	return master, slave
}

func lflag(t *testing.T, fd int) uint32 {
	t.Helper()
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	require.NoError(t, err)
	return tio.Lflag
}

func TestTTY_modes(t *testing.T) {
	_, slave := openPty(t)
	require.NotZero(t, lflag(t, slave)&unix.ICANON)
	assert.Equal(t, TTYHandle, GuessHandle(slave))

	l := newTestLoop(t)
	tty, err := l.NewTTY(slave, true)
	require.NoError(t, err)

	width, height, err := tty.GetWinsize()
	require.NoError(t, err)
	assert.Equal(t, 80, width)
	assert.Equal(t, 24, height)

	require.NoError(t, tty.SetMode(TTYModeRaw))
	assert.Zero(t, lflag(t, slave)&unix.ICANON)
	assert.Zero(t, lflag(t, slave)&unix.ECHO)
	assert.Zero(t, lflag(t, slave)&unix.ISIG)

	require.NoError(t, tty.SetMode(TTYModeNormal))
	assert.NotZero(t, lflag(t, slave)&unix.ICANON)
	assert.NotZero(t, lflag(t, slave)&unix.ECHO)

	require.NoError(t, tty.SetMode(TTYModeIO))
	assert.Zero(t, lflag(t, slave)&unix.ICANON)
	assert.NoError(t, ResetMode())
	assert.NotZero(t, lflag(t, slave)&unix.ICANON)

	assert.ErrorIs(t, tty.SetMode(TTYMode(99)), EINVAL)

	var closed bool
	tty.Close(func(Handle) { closed = true })
	runUntilDone(t, l, 5*time.Second)
	assert.True(t, closed)

	// the saved mode belonged to the closed handle
	assert.NoError(t, ResetMode())
	assert.ErrorIs(t, tty.SetMode(TTYModeRaw), ErrHandleClosed)
}
