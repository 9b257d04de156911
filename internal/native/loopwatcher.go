// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

type (
	PrepareCb func(h *Prepare)
	CheckCb   func(h *Check)
	IdleCb    func(h *Idle)
)

// Prepare runs its callback once per iteration, right before polling.
type Prepare struct {
	Handle
	cb PrepareCb
}

// Check runs its callback once per iteration, right after polling.
type Check struct {
	Handle
	cb CheckCb
}

// Idle runs its callback once per iteration and forces a zero poll timeout
// while active.
type Idle struct {
	Handle
	cb IdleCb
}

func (l *Loop) InitPrepare(h *Prepare) int {
	l.handleInit(&h.Handle, PrepareHandle, h)
	h.cb = nil
	return 0
}

func (l *Loop) InitCheck(h *Check) int {
	l.handleInit(&h.Handle, CheckHandle, h)
	h.cb = nil
	return 0
}

func (l *Loop) InitIdle(h *Idle) int {
	l.handleInit(&h.Handle, IdleHandle, h)
	h.cb = nil
	return 0
}

func (h *Prepare) Start(cb PrepareCb) int {
	if cb == nil {
		return EINVAL
	}
	if h.IsActive() {
		return 0
	}
	h.cb = cb
	h.loop.prepareQueue = append(h.loop.prepareQueue, h)
	h.start()
	return 0
}

func (h *Prepare) Stop() int {
	if !h.IsActive() {
		return 0
	}
	h.loop.prepareQueue = removeWatcher(h.loop.prepareQueue, h)
	h.stop()
	return 0
}

func (h *Check) Start(cb CheckCb) int {
	if cb == nil {
		return EINVAL
	}
	if h.IsActive() {
		return 0
	}
	h.cb = cb
	h.loop.checkQueue = append(h.loop.checkQueue, h)
	h.start()
	return 0
}

func (h *Check) Stop() int {
	if !h.IsActive() {
		return 0
	}
	h.loop.checkQueue = removeWatcher(h.loop.checkQueue, h)
	h.stop()
	return 0
}

func (h *Idle) Start(cb IdleCb) int {
	if cb == nil {
		return EINVAL
	}
	if h.IsActive() {
		return 0
	}
	h.cb = cb
	h.loop.idleQueue = append(h.loop.idleQueue, h)
	h.start()
	return 0
}

func (h *Idle) Stop() int {
	if !h.IsActive() {
		return 0
	}
	h.loop.idleQueue = removeWatcher(h.loop.idleQueue, h)
	h.stop()
	return 0
}

func removeWatcher[T comparable](queue []T, h T) []T {
	for i, v := range queue {
		if v == h {
			return append(queue[:i:i], queue[i+1:]...)
		}
	}
	return queue
}

// The queues are snapshotted so callbacks may start or stop watchers.

func (l *Loop) runPrepare() {
	for _, h := range append([]*Prepare(nil), l.prepareQueue...) {
		if h.IsActive() {
			h.cb(h)
		}
	}
}

func (l *Loop) runCheck() {
	for _, h := range append([]*Check(nil), l.checkQueue...) {
		if h.IsActive() {
			h.cb(h)
		}
	}
}

func (l *Loop) runIdle() {
	for _, h := range append([]*Idle(nil), l.idleQueue...) {
		if h.IsActive() {
			h.cb(h)
		}
	}
}
