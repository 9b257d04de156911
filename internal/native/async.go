// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "sync/atomic"

// AsyncCb is invoked on the loop after one or more calls to [Async.Send].
type AsyncCb func(h *Async)

// Async wakes the loop from any goroutine.
type Async struct {
	Handle
	cb      AsyncCb
	pending atomic.Uint32
}

// InitAsync initializes and starts h. Unlike other handles an async handle
// is active immediately.
func (l *Loop) InitAsync(h *Async, cb AsyncCb) int {
	l.handleInit(&h.Handle, AsyncHandle, h)
	h.cb = cb
	h.pending.Store(0)
	l.asyncs = append(l.asyncs, h)
	h.start()
	return 0
}

// Send marks h pending and wakes the loop. Sends that happen before the loop
// gets to run the callback are coalesced into one invocation. Safe to call
// from any goroutine.
func (h *Async) Send() int {
	if h.pending.CompareAndSwap(0, 1) {
		h.loop.wakeup()
	}
	return 0
}

func (h *Async) close() {
	h.loop.asyncs = removeWatcher(h.loop.asyncs, h)
	h.stop()
}

func (l *Loop) runAsyncs() {
	for _, h := range append([]*Async(nil), l.asyncs...) {
		if h.pending.Swap(0) == 0 {
			continue
		}
		if h.IsClosing() || h.cb == nil {
			continue
		}
		h.cb(h)
	}
}
