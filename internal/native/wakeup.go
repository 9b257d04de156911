// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// post queues fn to run on the loop goroutine during its next poll phase.
// Safe to call from any goroutine. Returns false if the loop is closed.
func (l *Loop) post(fn func()) bool {
	l.postMu.Lock()
	if l.postClosed {
		l.postMu.Unlock()
		return false
	}
	l.posted = append(l.posted, fn)
	l.postMu.Unlock()
	l.wakeup()
	return true
}

// wakeup writes to the wake-up fd, deduplicated until the loop drains it.
func (l *Loop) wakeup() {
	if !l.wakePending.CompareAndSwap(0, 1) {
		return
	}

	l.wakeMu.RLock()
	defer l.wakeMu.RUnlock()
	if l.wakeWrite < 0 {
		return
	}

	// Native endianness, eventfd requires exactly 8 bytes.
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, _ = unix.Write(l.wakeWrite, buf)
}

// drainWakeUp drains the wake-up fd, then runs everything that was posted
// and every async handle with a pending send.
func (l *Loop) drainWakeUp(ioEvents) {
	for {
		_, err := unix.Read(l.wakeRead, l.wakeBuf[:])
		if err != nil {
			break
		}
	}
	l.wakePending.Store(0)

	l.postMu.Lock()
	posted := l.posted
	l.posted = nil
	l.postMu.Unlock()

	for _, fn := range posted {
		fn()
	}

	l.runAsyncs()
}
