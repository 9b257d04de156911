// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

// FsPollCb receives the previous and current stat of the polled path. On
// error only status is meaningful, the stats are zero.
type FsPollCb func(h *FsPoll, status int, prev, curr *Stat)

// FsPoll detects changes to a path by stat-ing it at an interval.
type FsPoll struct {
	Handle
	cb       FsPollCb
	path     string
	interval uint64
	started  uint64
	busy     int
	gen      uint64
	statbuf  Stat
	timer    Timer
	req      FsReq
	inflight bool
}

// InitFsPoll initializes h.
func (l *Loop) InitFsPoll(h *FsPoll) int {
	l.handleInit(&h.Handle, FsPollHandle, h)
	h.cb = nil
	h.path = ""
	h.busy = 0
	h.inflight = false
	h.timer = Timer{}
	return 0
}

// Path returns the polled path, empty when stopped.
func (h *FsPoll) Path() string {
	if !h.IsActive() {
		return ""
	}
	return h.path
}

// Start starts polling path every interval milliseconds.
func (h *FsPoll) Start(cb FsPollCb, path string, interval uint) int {
	if h.IsActive() {
		return 0
	}
	if cb == nil || path == "" || h.IsClosing() {
		return EINVAL
	}
	if interval == 0 {
		interval = 1
	}
	h.cb = cb
	h.path = path
	h.interval = uint64(interval)
	h.started = h.loop.Now()
	h.busy = 0
	h.statbuf = Stat{}
	h.gen++

	if h.timer.loop == nil {
		h.loop.InitTimer(&h.timer)
		h.timer.flags |= flagInternal
		h.timer.Unref()
	}

	if code := h.stat(); code != 0 {
		return code
	}
	h.Handle.start()
	return 0
}

// Stop stops polling. Idempotent.
func (h *FsPoll) Stop() int {
	if !h.IsActive() {
		return 0
	}
	h.gen++
	if h.timer.loop != nil {
		h.timer.Stop()
	}
	h.stop()
	return 0
}

func (h *FsPoll) stat() int {
	if h.inflight {
		return 0
	}
	gen := h.gen
	code := h.loop.FsStat(&h.req, h.path, func(req *FsReq) {
		h.inflight = false
		if gen != h.gen {
			// Restarted while the stat was in flight.
			if h.IsActive() && !h.IsClosing() {
				h.stat()
			}
			return
		}
		h.polled(gen, req)
	})
	if code == 0 {
		h.inflight = true
	}
	return code
}

func (h *FsPoll) polled(gen uint64, req *FsReq) {
	if gen != h.gen || !h.IsActive() || h.IsClosing() {
		return
	}

	if req.Result != 0 {
		if h.busy != int(req.Result) {
			var zero Stat
			prev := h.statbuf
			h.cb(h, int(req.Result), &prev, &zero)
			h.busy = int(req.Result)
		}
	} else {
		curr := req.Statbuf
		if h.busy != 0 && (h.busy < 0 || statChanged(&h.statbuf, &curr)) {
			prev := h.statbuf
			h.cb(h, 0, &prev, &curr)
		}
		h.statbuf = curr
		h.busy = 1
	}
	req.Cleanup()

	if gen != h.gen || !h.IsActive() || h.IsClosing() {
		return
	}
	// Reschedule so that polls stay aligned to the original start time.
	elapsed := h.loop.Now() - h.started
	h.timer.Start(h.tick, h.interval-elapsed%h.interval, 0)
}

func (h *FsPoll) tick(*Timer) {
	h.started = h.loop.Now()
	if code := h.stat(); code != 0 {
		h.cb(h, code, &h.statbuf, &Stat{})
	}
}

func statChanged(a, b *Stat) bool {
	return a.Ctim != b.Ctim ||
		a.Mtim != b.Mtim ||
		a.Birthtim != b.Birthtim ||
		a.Size != b.Size ||
		a.Mode != b.Mode ||
		a.UID != b.UID ||
		a.GID != b.GID ||
		a.Ino != b.Ino ||
		a.Dev != b.Dev ||
		a.Flags != b.Flags ||
		a.Gen != b.Gen
}

func (h *FsPoll) close() {
	h.Stop()
	if h.timer.loop != nil && !h.timer.IsClosing() {
		h.timer.Close(nil)
	}
}
