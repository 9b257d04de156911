// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "path/filepath"

// Fs event masks.
const (
	FsEventRename = 1
	FsEventChange = 2
)

// Fs event start flags.
const (
	FsEventWatchEntry = 1
	FsEventStat       = 2
	FsEventRecursive  = 4
)

// FsEventCb receives the changed entry's name relative to the watched path.
type FsEventCb func(h *FsEvent, filename string, events int, status int)

// FsEvent watches a file or directory for changes.
type FsEvent struct {
	Handle
	cb      FsEventCb
	path    string
	watchID int
}

// InitFsEvent initializes h.
func (l *Loop) InitFsEvent(h *FsEvent) int {
	l.handleInit(&h.Handle, FsEventHandle, h)
	h.cb = nil
	h.path = ""
	h.watchID = -1
	return 0
}

// Path returns the watched path, empty when stopped.
func (h *FsEvent) Path() string { return h.path }

// Start starts watching path.
func (h *FsEvent) Start(cb FsEventCb, path string, flags uint) int {
	if h.IsActive() {
		return EINVAL
	}
	if cb == nil || path == "" || h.IsClosing() {
		return EINVAL
	}
	if flags&^(FsEventWatchEntry|FsEventStat|FsEventRecursive) != 0 {
		return EINVAL
	}
	h.path = path
	h.cb = cb
	if code := h.loop.fsEvents.add(h.loop, h); code != 0 {
		h.path, h.cb = "", nil
		return code
	}
	h.start()
	return 0
}

// Stop stops watching. Idempotent.
func (h *FsEvent) Stop() int {
	if !h.IsActive() {
		return 0
	}
	h.loop.fsEvents.remove(h)
	h.stop()
	h.path = ""
	return 0
}

func (h *FsEvent) notify(name string, events int) {
	if !h.IsActive() || h.cb == nil {
		return
	}
	if name == "" {
		name = filepath.Base(h.path)
	}
	h.cb(h, name, events, 0)
}
