// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// SignalCb runs on the loop when the watched signal arrives.
type SignalCb func(h Signal, signum int)

type signalData struct {
	cb slot[SignalCb]
}

// Signal watches a process signal. Several handles, on any loops, may watch
// the same signal. The zero value is invalid.
type Signal struct {
	s *native.Signal
}

// NewSignal creates a stopped signal handle.
func (l *Loop) NewSignal() (Signal, error) {
	n, err := l.live()
	if err != nil {
		return Signal{}, err
	}
	s := new(native.Signal)
	if code := n.InitSignal(s); code != 0 {
		return Signal{}, errOf(code)
	}
	initHandle(&s.Handle, &signalData{})
	return Signal{s: s}, nil
}

// Handle upcasts h.
func (h Signal) Handle() Handle { return Handle{h: &h.s.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Signal) Close(cb CloseCb) { h.Handle().Close(cb) }

// Signum returns the watched signal, 0 when stopped.
func (h Signal) Signum() int { return h.s.Signum() }

func signalTrampoline(s *native.Signal, signum int) {
	d, ok := addlOf[*signalData](&s.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(s.Loop()).safeCall("signal", func() { cb(Signal{s: s}, signum) })
	}
}

// Start watches signum until stopped. Restarting with another signal
// replaces the watch.
func (h Signal) Start(cb SignalCb, signum int) error {
	return h.start(cb, signum, (*native.Signal).Start)
}

// StartOneshot is [Signal.Start], stopping after the first delivery.
func (h Signal) StartOneshot(cb SignalCb, signum int) error {
	return h.start(cb, signum, (*native.Signal).StartOneshot)
}

func (h Signal) start(cb SignalCb, signum int, fn func(*native.Signal, native.SignalCb, int) int) error {
	d, err := liveAddl[*signalData](&h.s.Handle)
	if err != nil {
		return err
	}
	s := newSlot(cb)
	if s.isEmpty() {
		return ErrNilCallback
	}
	if code := fn(h.s, signalTrampoline, signum); code != 0 {
		return errOf(code)
	}
	d.cb = s
	return nil
}

// Stop stops watching. Idempotent.
func (h Signal) Stop() error { return errOf(h.s.Stop()) }
