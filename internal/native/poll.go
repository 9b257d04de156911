// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "golang.org/x/sys/unix"

// Poll event flags.
const (
	PollReadable    = 1
	PollWritable    = 2
	PollDisconnect  = 4
	PollPrioritized = 8
)

// PollCb receives the ready events, or a negative status with zero events.
type PollCb func(h *Poll, status int, events int)

// Poll watches an externally owned descriptor for readiness.
type Poll struct {
	Handle
	io ioWatcher
	cb PollCb
}

// InitPoll initializes h for fd. The descriptor is made non-blocking but is
// never closed by the handle.
func (l *Loop) InitPoll(h *Poll, fd int) int {
	if code := l.ioCheckFD(fd); code != 0 {
		return code
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return Translate(err)
	}
	l.handleInit(&h.Handle, PollHandle, h)
	h.io.init(fd, h.ioCallback)
	h.cb = nil
	return 0
}

// InitPollSocket is InitPoll for sockets.
func (l *Loop) InitPollSocket(h *Poll, fd int) int {
	return l.InitPoll(h, fd)
}

// Start starts watching for events, replacing any previous mask and cb.
func (h *Poll) Start(events int, cb PollCb) int {
	if events&^(PollReadable|PollWritable|PollDisconnect|PollPrioritized) != 0 {
		return EINVAL
	}
	if h.IsClosing() {
		return EINVAL
	}
	h.stopPolling()
	if events == 0 {
		return 0
	}

	var pevents ioEvents
	if events&PollReadable != 0 {
		pevents |= pollIn
	}
	if events&PollPrioritized != 0 {
		pevents |= pollPri
	}
	if events&PollWritable != 0 {
		pevents |= pollOut
	}
	if events&PollDisconnect != 0 {
		pevents |= pollRdhup
	}
	if code := h.loop.ioStart(&h.io, pevents); code != 0 {
		return code
	}
	h.cb = cb
	h.start()
	return 0
}

// Stop stops watching. Idempotent.
func (h *Poll) Stop() int {
	h.stopPolling()
	return 0
}

func (h *Poll) stopPolling() {
	h.loop.ioStop(&h.io, pollIn|pollOut|pollPri|pollRdhup)
	h.stop()
}

func (h *Poll) ioCallback(events ioEvents) {
	if events&pollErr != 0 {
		h.loop.ioStop(&h.io, pollIn|pollOut|pollPri|pollRdhup)
		h.stop()
		if h.cb != nil {
			h.cb(h, EBADF, 0)
		}
		return
	}

	var pevents int
	if events&pollIn != 0 {
		pevents |= PollReadable
	}
	if events&pollPri != 0 {
		pevents |= PollPrioritized
	}
	if events&pollOut != 0 {
		pevents |= PollWritable
	}
	if events&(pollRdhup|pollHup) != 0 {
		pevents |= PollDisconnect
	}
	if h.cb != nil {
		h.cb(h, 0, pevents)
	}
}

func (h *Poll) close() {
	h.stopPolling()
	h.loop.ioClose(&h.io)
}
