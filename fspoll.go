// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"time"

	"github.com/joeycumines/go-uv/internal/native"
)

// FsPollCb receives the previous and current stat of the polled path
// whenever it changed. On error curr is zero, and the callback only runs
// again once the error changes or clears.
type FsPollCb func(h FsPoll, prev, curr Stat, err error)

type fsPollData struct {
	cb slot[FsPollCb]
}

// FsPoll detects changes to a path by stat-ing it at an interval, for
// filesystems where [FsEvent] is unreliable. The zero value is invalid.
type FsPoll struct {
	f *native.FsPoll
}

// NewFsPoll creates a stopped fs poll handle.
func (l *Loop) NewFsPoll() (FsPoll, error) {
	n, err := l.live()
	if err != nil {
		return FsPoll{}, err
	}
	f := new(native.FsPoll)
	if code := n.InitFsPoll(f); code != 0 {
		return FsPoll{}, errOf(code)
	}
	initHandle(&f.Handle, &fsPollData{})
	return FsPoll{f: f}, nil
}

// Handle upcasts h.
func (h FsPoll) Handle() Handle { return Handle{h: &h.f.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h FsPoll) Close(cb CloseCb) { h.Handle().Close(cb) }

// Path returns the polled path, empty when stopped.
func (h FsPoll) Path() string { return h.f.Path() }

func fsPollTrampoline(f *native.FsPoll, status int, prev, curr *native.Stat) {
	d, ok := addlOf[*fsPollData](&f.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		p, c := statOf(prev), statOf(curr)
		loopOf(f.Loop()).safeCall("fs poll", func() { cb(FsPoll{f: f}, p, c, errOf(status)) })
	}
}

// Start polls path every interval milliseconds. A no-op if already started.
func (h FsPoll) Start(cb FsPollCb, path string, interval uint) error {
	d, err := liveAddl[*fsPollData](&h.f.Handle)
	if err != nil {
		return err
	}
	if h.f.IsActive() {
		return nil
	}
	s := newSlot(cb)
	if s.isEmpty() {
		return ErrNilCallback
	}
	d.cb = s
	return errOf(h.f.Start(fsPollTrampoline, path, interval))
}

// StartDuration is [FsPoll.Start] with the interval as a duration.
func (h FsPoll) StartDuration(cb FsPollCb, path string, interval time.Duration) error {
	return h.Start(cb, path, uint(durationMillis(interval)))
}

// Stop stops polling. Idempotent.
func (h FsPoll) Stop() error { return errOf(h.f.Stop()) }
