// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestLoop returns an initialized loop that is closed at the end of the
// test, after closing any handles left open.
func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l := new(Loop)
	require.Zero(t, l.Init())
	t.Cleanup(func() {
		l.Walk(func(h *Handle) {
			if !h.IsClosing() {
				h.Close(nil)
			}
		})
		l.Run(RunDefault)
		require.Zero(t, l.Close())
	})
	return l
}

// runWithDeadline runs l until it has no more work, failing the test if
// that takes longer than d.
func runWithDeadline(t *testing.T, l *Loop, d time.Duration) {
	t.Helper()
	var deadline Timer
	require.Zero(t, l.InitTimer(&deadline))
	require.Zero(t, deadline.Start(func(*Timer) {
		l.Stop()
		t.Error("loop did not finish in time")
	}, uint64(d/time.Millisecond), 0))
	deadline.Unref()
	l.Run(RunDefault)
	deadline.Close(nil)
	l.Run(RunNoWait)
}

func testAlloc(_ *Handle, suggestedSize int, buf *Buf) {
	*buf = BufInit(make([]byte, suggestedSize))
}
