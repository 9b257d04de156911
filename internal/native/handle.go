// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HandleType identifies the kind of a [Handle].
type HandleType int

const (
	UnknownHandle HandleType = iota
	AsyncHandle
	CheckHandle
	FsEventHandle
	FsPollHandle
	GenericHandle
	IdleHandle
	NamedPipeHandle
	PollHandle
	PrepareHandle
	ProcessHandle
	StreamHandle
	TCPHandle
	TimerHandle
	TTYHandle
	UDPHandle
	SignalHandle
	FileHandle
)

var handleTypeNames = [...]string{
	UnknownHandle:   "unknown",
	AsyncHandle:     "async",
	CheckHandle:     "check",
	FsEventHandle:   "fs_event",
	FsPollHandle:    "fs_poll",
	GenericHandle:   "handle",
	IdleHandle:      "idle",
	NamedPipeHandle: "pipe",
	PollHandle:      "poll",
	PrepareHandle:   "prepare",
	ProcessHandle:   "process",
	StreamHandle:    "stream",
	TCPHandle:       "tcp",
	TimerHandle:     "timer",
	TTYHandle:       "tty",
	UDPHandle:       "udp",
	SignalHandle:    "signal",
	FileHandle:      "file",
}

// String returns the lower case name used by the C library for t.
func (t HandleType) String() string {
	if t >= 0 && int(t) < len(handleTypeNames) {
		return handleTypeNames[t]
	}
	return fmt.Sprintf("HandleType(%d)", int(t))
}

type handleFlags uint32

const (
	flagActive handleFlags = 1 << iota
	flagRef
	flagClosing
	flagClosed
	flagInternal
)

// CloseCb is invoked once a handle has been fully closed.
type CloseCb func(h *Handle)

// Handle is the common header of every handle kind. Concrete kinds embed it
// and are recovered with [Handle.Outer].
type Handle struct {
	// Data is the opaque user slot.
	Data any

	loop    *Loop
	typ     HandleType
	flags   handleFlags
	closeCb CloseCb
	outer   any

	qnext, qprev *Handle
}

func (l *Loop) handleInit(h *Handle, typ HandleType, outer any) {
	*h = Handle{
		loop:  l,
		typ:   typ,
		flags: flagRef,
		outer: outer,
	}
	l.handleInsert(h)
}

func (l *Loop) handleInsert(h *Handle) {
	h.qprev = l.handleTail
	h.qnext = nil
	if l.handleTail != nil {
		l.handleTail.qnext = h
	} else {
		l.handleHead = h
	}
	l.handleTail = h
}

func (l *Loop) handleRemove(h *Handle) {
	if h.qprev != nil {
		h.qprev.qnext = h.qnext
	} else if l.handleHead == h {
		l.handleHead = h.qnext
	}
	if h.qnext != nil {
		h.qnext.qprev = h.qprev
	} else if l.handleTail == h {
		l.handleTail = h.qprev
	}
	h.qnext, h.qprev = nil, nil
}

func (h *Handle) start() {
	if h.flags&flagActive != 0 {
		return
	}
	h.flags |= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeHandles++
	}
}

func (h *Handle) stop() {
	if h.flags&flagActive == 0 {
		return
	}
	h.flags &^= flagActive
	if h.flags&flagRef != 0 {
		h.loop.activeHandles--
	}
}

// Loop returns the loop the handle was initialized on.
func (h *Handle) Loop() *Loop { return h.loop }

// Type returns the kind of the handle.
func (h *Handle) Type() HandleType { return h.typ }

// Outer returns the concrete structure embedding h, e.g. *Timer.
func (h *Handle) Outer() any { return h.outer }

// IsActive reports whether the handle is doing work that keeps the loop
// alive when referenced.
func (h *Handle) IsActive() bool { return h.flags&flagActive != 0 }

// IsClosing reports whether Close has been called.
func (h *Handle) IsClosing() bool { return h.flags&(flagClosing|flagClosed) != 0 }

// IsClosed reports whether the close callback has been dispatched.
func (h *Handle) IsClosed() bool { return h.flags&flagClosed != 0 }

// HasRef reports whether the handle is referenced.
func (h *Handle) HasRef() bool { return h.flags&flagRef != 0 }

func (h *Handle) isInternal() bool { return h.flags&flagInternal != 0 }

// Ref references the handle. Idempotent.
func (h *Handle) Ref() {
	if h.flags&flagRef != 0 {
		return
	}
	h.flags |= flagRef
	if h.flags&flagClosing != 0 {
		return
	}
	if h.flags&flagActive != 0 {
		h.loop.activeHandles++
	}
}

// Unref unreferences the handle. Idempotent.
func (h *Handle) Unref() {
	if h.flags&flagRef == 0 {
		return
	}
	h.flags &^= flagRef
	if h.flags&flagClosing != 0 {
		return
	}
	if h.flags&flagActive != 0 {
		h.loop.activeHandles--
	}
}

// Close requests the handle be closed. cb, if non-nil, runs from the loop's
// closing phase. Calling Close on a closing handle is a no-op.
func (h *Handle) Close(cb CloseCb) {
	if h.IsClosing() {
		return
	}
	h.flags |= flagClosing
	h.closeCb = cb

	switch o := h.outer.(type) {
	case *Timer:
		o.Stop()
	case *Prepare:
		o.Stop()
	case *Check:
		o.Stop()
	case *Idle:
		o.Stop()
	case *Async:
		o.close()
	case *Poll:
		o.close()
	case *Signal:
		o.close()
	case *Process:
		o.close()
	case *FsEvent:
		o.Stop()
	case *FsPoll:
		o.close()
	case *TCP:
		o.close()
	case *Pipe:
		o.close()
	case *TTY:
		o.close()
	case *UDP:
		o.close()
	}

	h.loop.closingHandles = append(h.loop.closingHandles, h)
}

func (l *Loop) finishClose(h *Handle) {
	h.flags |= flagClosed

	switch o := h.outer.(type) {
	case *TCP:
		o.Stream.destroy()
	case *Pipe:
		o.Stream.destroy()
	case *TTY:
		o.Stream.destroy()
	case *UDP:
		o.finishClose()
	}

	l.handleRemove(h)
	h.stop()

	if cb := h.closeCb; cb != nil {
		h.closeCb = nil
		cb(h)
	}
}

func (h *Handle) fd() int {
	switch o := h.outer.(type) {
	case *TCP:
		return o.io.fd
	case *Pipe:
		return o.io.fd
	case *TTY:
		return o.io.fd
	case *UDP:
		return o.io.fd
	case *Poll:
		return o.io.fd
	}
	return -2
}

// Fileno returns the platform file descriptor backing the handle. It fails
// with EINVAL for kinds that have none and EBADF when not yet open.
func (h *Handle) Fileno() (int, int) {
	fd := h.fd()
	switch {
	case fd == -2:
		return -1, EINVAL
	case fd < 0 || h.IsClosing():
		return -1, EBADF
	}
	return fd, 0
}

// SendBufferSize reads (when *value is 0) or sets the SO_SNDBUF option.
func (h *Handle) SendBufferSize(value *int) int {
	return h.bufferSize(unix.SO_SNDBUF, value)
}

// RecvBufferSize reads (when *value is 0) or sets the SO_RCVBUF option.
func (h *Handle) RecvBufferSize(value *int) int {
	return h.bufferSize(unix.SO_RCVBUF, value)
}

func (h *Handle) bufferSize(opt int, value *int) int {
	if value == nil {
		return EINVAL
	}
	switch h.typ {
	case TCPHandle, NamedPipeHandle, UDPHandle:
	default:
		return ENOTSUP
	}
	fd, r := h.Fileno()
	if r != 0 {
		return r
	}
	if *value == 0 {
		v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, opt)
		if err != nil {
			return Translate(err)
		}
		*value = v
		return 0
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, opt, *value); err != nil {
		return Translate(err)
	}
	return 0
}
