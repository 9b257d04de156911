// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalCb receives the signal number that was delivered.
type SignalCb func(h *Signal, signum int)

// Signal delivers process signals on the loop.
type Signal struct {
	Handle
	cb      SignalCb
	signum  int
	oneshot bool
}

// signalWatch is the process wide subscription for one signal number.
type signalWatch struct {
	ch      chan os.Signal
	done    chan struct{}
	handles map[*Signal]struct{}
}

var signals struct {
	mu      sync.Mutex
	watches map[int]*signalWatch
}

// InitSignal initializes h.
func (l *Loop) InitSignal(h *Signal) int {
	l.handleInit(&h.Handle, SignalHandle, h)
	h.cb = nil
	h.signum = 0
	h.oneshot = false
	return 0
}

// Signum returns the watched signal number, 0 when stopped.
func (h *Signal) Signum() int { return h.signum }

// Start starts watching signum.
func (h *Signal) Start(cb SignalCb, signum int) int {
	return h.startSignal(cb, signum, false)
}

// StartOneshot is Start, but the handle stops after the first delivery.
func (h *Signal) StartOneshot(cb SignalCb, signum int) int {
	return h.startSignal(cb, signum, true)
}

func (h *Signal) startSignal(cb SignalCb, signum int, oneshot bool) int {
	if h.IsClosing() || cb == nil {
		return EINVAL
	}
	if signum <= 0 || signum >= 65 {
		return EINVAL
	}
	switch syscall.Signal(signum) {
	case syscall.SIGKILL, syscall.SIGSTOP:
		return EINVAL
	}

	if h.signum == signum {
		h.cb = cb
		h.oneshot = oneshot
		return 0
	}
	if h.signum != 0 {
		h.unwatch()
	}

	h.cb = cb
	h.oneshot = oneshot
	h.signum = signum
	h.watch()
	h.start()
	return 0
}

// Stop stops watching. Idempotent.
func (h *Signal) Stop() int {
	if h.signum == 0 {
		return 0
	}
	h.unwatch()
	h.signum = 0
	h.stop()
	return 0
}

func (h *Signal) close() {
	h.Stop()
}

func (h *Signal) watch() {
	signals.mu.Lock()
	defer signals.mu.Unlock()
	if signals.watches == nil {
		signals.watches = make(map[int]*signalWatch)
	}
	w := signals.watches[h.signum]
	if w == nil {
		w = &signalWatch{
			ch:      make(chan os.Signal, 8),
			done:    make(chan struct{}),
			handles: make(map[*Signal]struct{}),
		}
		signals.watches[h.signum] = w
		signal.Notify(w.ch, syscall.Signal(h.signum))
		go w.run(h.signum)
	}
	w.handles[h] = struct{}{}
}

func (h *Signal) unwatch() {
	signals.mu.Lock()
	defer signals.mu.Unlock()
	w := signals.watches[h.signum]
	if w == nil {
		return
	}
	delete(w.handles, h)
	if len(w.handles) == 0 {
		signal.Stop(w.ch)
		close(w.done)
		delete(signals.watches, h.signum)
	}
}

func (w *signalWatch) run(signum int) {
	for {
		select {
		case <-w.done:
			return
		case <-w.ch:
		}

		signals.mu.Lock()
		targets := make([]*Signal, 0, len(w.handles))
		for h := range w.handles {
			targets = append(targets, h)
		}
		signals.mu.Unlock()

		for _, h := range targets {
			h.loop.post(func() { h.deliver(signum) })
		}
	}
}

func (h *Signal) deliver(signum int) {
	if h.signum != signum || h.IsClosing() {
		return
	}
	cb := h.cb
	if h.oneshot {
		h.Stop()
	}
	if cb != nil {
		cb(h, signum)
	}
}
