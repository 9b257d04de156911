// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestLoop returns a loop that is deleted at the end of the test.
func newTestLoop(t *testing.T, opts ...LoopOption) *Loop {
	t.Helper()
	l, err := NewLoop(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, l.Delete())
	})
	return l
}

// runUntilDone runs l in default mode, failing the test if it is still
// running after d.
func runUntilDone(t *testing.T, l *Loop, d time.Duration) {
	t.Helper()
	deadline, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, deadline.StartDuration(func(Timer) {
		t.Error("loop did not finish in time")
		l.Stop()
	}, d, 0))
	deadline.Handle().Unref()
	_, err = l.Run(RunDefault)
	require.NoError(t, err)
	deadline.Close(nil)
	_, err = l.Run(RunNoWait)
	require.NoError(t, err)
}

func mustAddr(t *testing.T, s string) netip.AddrPort {
	t.Helper()
	ap, err := netip.ParseAddrPort(s)
	require.NoError(t, err)
	return ap
}
