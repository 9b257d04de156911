// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLoop_SpawnProcess_exitStatus(t *testing.T) {
	l := newTestLoop(t)
	var (
		status int64 = -1
		signal       = -1
	)
	p, err := l.SpawnProcess(ProcessOptions{
		File: "sh",
		Args: []string{"sh", "-c", "exit 3"},
		ExitCb: func(p Process, exitStatus int64, termSignal int) {
			status, signal = exitStatus, termSignal
			p.Close(nil)
		},
	})
	require.NoError(t, err)
	assert.Positive(t, p.Pid())
	assert.Equal(t, ProcessHandle, p.Handle().Type())
	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, int64(3), status)
	assert.Equal(t, 0, signal)
}

func TestLoop_SpawnProcess_stdoutPipe(t *testing.T) {
	l := newTestLoop(t)
	out, err := l.NewPipe(false)
	require.NoError(t, err)

	var (
		output strings.Builder
		exited bool
	)
	_, err = l.SpawnProcess(ProcessOptions{
		File: "sh",
		Args: []string{"sh", "-c", "echo $GREETING"},
		Env:  []string{"GREETING=hi"},
		Stdio: []StdioContainer{
			{Flags: StdioIgnore},
			{Flags: StdioCreatePipe | StdioWritablePipe, Stream: out.Stream()},
		},
		ExitCb: func(p Process, exitStatus int64, _ int) {
			assert.Zero(t, exitStatus)
			exited = true
			p.Close(nil)
		},
	})
	require.NoError(t, err)
	require.NoError(t, out.Stream().ReadStart(nil, func(s Stream, _ int, buf ReadonlyBuf, err error) {
		if err != nil {
			assert.ErrorIs(t, err, EOF)
			s.Close(nil)
			return
		}
		output.Write(buf.Bytes())
	}))

	runUntilDone(t, l, 10*time.Second)
	assert.True(t, exited)
	assert.Equal(t, "hi\n", output.String())
}

func TestProcess_Kill(t *testing.T) {
	l := newTestLoop(t)
	var signal int
	p, err := l.SpawnProcess(ProcessOptions{
		File: "sleep",
		Args: []string{"sleep", "30"},
		ExitCb: func(p Process, _ int64, termSignal int) {
			signal = termSignal
			p.Close(nil)
		},
	})
	require.NoError(t, err)
	require.NoError(t, p.Kill(0))
	require.NoError(t, p.Kill(int(unix.SIGTERM)))
	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, int(unix.SIGTERM), signal)
	assert.ErrorIs(t, KillPid(-0x7fffffff, 0), ESRCH)
}

func TestLoop_SpawnProcess_notFound(t *testing.T) {
	l := newTestLoop(t)
	_, err := l.SpawnProcess(ProcessOptions{
		File: "/nonexistent/program",
		ExitCb: func(Process, int64, int) {
			t.Error("unexpected exit")
		},
	})
	assert.ErrorIs(t, err, ENOENT)
	// the failed handle was closed already
	runUntilDone(t, l, 5*time.Second)
}

func TestSignal_oneshot(t *testing.T) {
	l := newTestLoop(t)
	sig, err := l.NewSignal()
	require.NoError(t, err)
	assert.ErrorIs(t, sig.Start(nil, int(unix.SIGUSR1)), ErrNilCallback)

	var got []int
	require.NoError(t, sig.StartOneshot(func(h Signal, signum int) {
		got = append(got, signum)
		assert.Zero(t, h.Signum())
		h.Close(nil)
	}, int(unix.SIGUSR1)))
	assert.Equal(t, int(unix.SIGUSR1), sig.Signum())
	assert.True(t, sig.Handle().IsActive())
	require.NoError(t, KillPid(os.Getpid(), int(unix.SIGUSR1)))

	runUntilDone(t, l, 10*time.Second)
	assert.Equal(t, []int{int(unix.SIGUSR1)}, got)
}

func TestSignal_stop(t *testing.T) {
	l := newTestLoop(t)
	sig, err := l.NewSignal()
	require.NoError(t, err)
	require.NoError(t, sig.Start(func(Signal, int) {}, int(unix.SIGUSR2)))
	require.NoError(t, sig.Stop())
	require.NoError(t, sig.Stop())
	assert.False(t, sig.Handle().IsActive())
	assert.Zero(t, sig.Signum())
	sig.Close(nil)
	runUntilDone(t, l, 5*time.Second)
}
