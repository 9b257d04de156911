// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// Fs event masks, passed to [FsEventCb].
const (
	FsEventRename = native.FsEventRename
	FsEventChange = native.FsEventChange
)

// Fs event start flags.
const (
	FsEventWatchEntry = native.FsEventWatchEntry
	FsEventStat       = native.FsEventStat
	FsEventRecursive  = native.FsEventRecursive
)

// FsEventCb receives a change to the entry filename, relative to the watched
// path and empty when unknown. events is a mask of [FsEventRename] and
// [FsEventChange].
type FsEventCb func(h FsEvent, filename string, events int, err error)

type fsEventData struct {
	cb slot[FsEventCb]
}

// FsEvent watches a file or directory for changes.
// The zero value is invalid.
type FsEvent struct {
	f *native.FsEvent
}

// NewFsEvent creates a stopped fs event handle.
func (l *Loop) NewFsEvent() (FsEvent, error) {
	n, err := l.live()
	if err != nil {
		return FsEvent{}, err
	}
	f := new(native.FsEvent)
	if code := n.InitFsEvent(f); code != 0 {
		return FsEvent{}, errOf(code)
	}
	initHandle(&f.Handle, &fsEventData{})
	return FsEvent{f: f}, nil
}

// Handle upcasts h.
func (h FsEvent) Handle() Handle { return Handle{h: &h.f.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h FsEvent) Close(cb CloseCb) { h.Handle().Close(cb) }

// Path returns the watched path, empty when stopped.
func (h FsEvent) Path() string { return h.f.Path() }

func fsEventTrampoline(f *native.FsEvent, filename string, events, status int) {
	d, ok := addlOf[*fsEventData](&f.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(f.Loop()).safeCall("fs event", func() { cb(FsEvent{f: f}, filename, events, errOf(status)) })
	}
}

// Start watches path. It fails with [EINVAL] if already started.
func (h FsEvent) Start(cb FsEventCb, path string, flags uint) error {
	d, err := liveAddl[*fsEventData](&h.f.Handle)
	if err != nil {
		return err
	}
	s := newSlot(cb)
	if s.isEmpty() {
		return ErrNilCallback
	}
	if code := h.f.Start(fsEventTrampoline, path, flags); code != 0 {
		return errOf(code)
	}
	d.cb = s
	return nil
}

// Stop stops watching. Idempotent.
func (h FsEvent) Stop() error { return errOf(h.f.Stop()) }
