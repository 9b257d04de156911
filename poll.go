// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// Poll event flags.
const (
	PollReadable    = native.PollReadable
	PollWritable    = native.PollWritable
	PollDisconnect  = native.PollDisconnect
	PollPrioritized = native.PollPrioritized
)

// PollCb receives the ready events, a subset of the watched mask.
type PollCb func(h Poll, events int, err error)

type pollData struct {
	cb slot[PollCb]
}

// Poll watches an externally owned descriptor for readiness. The
// descriptor is never closed by the handle. The zero value is invalid.
type Poll struct {
	p *native.Poll
}

// NewPoll creates a poll handle for fd, which is made non-blocking.
func (l *Loop) NewPoll(fd int) (Poll, error) {
	return l.newPoll(fd, (*native.Loop).InitPoll)
}

// NewPollSocket is [Loop.NewPoll] for sockets.
func (l *Loop) NewPollSocket(fd int) (Poll, error) {
	return l.newPoll(fd, (*native.Loop).InitPollSocket)
}

func (l *Loop) newPoll(fd int, init func(*native.Loop, *native.Poll, int) int) (Poll, error) {
	n, err := l.live()
	if err != nil {
		return Poll{}, err
	}
	p := new(native.Poll)
	if code := init(n, p, fd); code != 0 {
		return Poll{}, errOf(code)
	}
	initHandle(&p.Handle, &pollData{})
	return Poll{p: p}, nil
}

// Handle upcasts h.
func (h Poll) Handle() Handle { return Handle{h: &h.p.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Poll) Close(cb CloseCb) { h.Handle().Close(cb) }

func pollTrampoline(p *native.Poll, status, events int) {
	d, ok := addlOf[*pollData](&p.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(p.Loop()).safeCall("poll", func() { cb(Poll{p: p}, events, errOf(status)) })
	}
}

// Start watches for events, replacing the previous mask and callback. An
// empty mask stops the handle.
func (h Poll) Start(events int, cb PollCb) error {
	d, err := liveAddl[*pollData](&h.p.Handle)
	if err != nil {
		return err
	}
	s := newSlot(cb)
	if s.isEmpty() {
		return ErrNilCallback
	}
	if code := h.p.Start(events, pollTrampoline); code != 0 {
		return errOf(code)
	}
	d.cb = s
	return nil
}

// Stop stops watching. Idempotent.
func (h Poll) Stop() error { return errOf(h.p.Stop()) }
