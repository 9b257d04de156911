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

// TimerCb runs when a timer expires.
type TimerCb func(t Timer)

type timerData struct {
	cb slot[TimerCb]
}

// Timer schedules a callback after a timeout, optionally repeating. The
// zero value behaves as a closed timer.
type Timer struct {
	t *native.Timer
}

// NewTimer creates a stopped timer.
func (l *Loop) NewTimer() (Timer, error) {
	n, err := l.live()
	if err != nil {
		return Timer{}, err
	}
	t := new(native.Timer)
	if code := n.InitTimer(t); code != 0 {
		return Timer{}, errOf(code)
	}
	initHandle(&t.Handle, &timerData{})
	return Timer{t: t}, nil
}

// Handle upcasts t.
func (t Timer) Handle() Handle {
	if t.t == nil {
		return Handle{}
	}
	return Handle{h: &t.t.Handle}
}

func (t Timer) data() (*timerData, error) {
	if t.t == nil {
		return nil, ErrHandleClosed
	}
	return liveAddl[*timerData](&t.t.Handle)
}

// Close is shorthand for Handle().Close(cb).
func (t Timer) Close(cb CloseCb) { t.Handle().Close(cb) }

func timerTrampoline(t *native.Timer) {
	d, ok := addlOf[*timerData](&t.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(t.Loop()).safeCall("timer", func() { cb(Timer{t: t}) })
	}
}

// Start arms the timer to fire after timeout milliseconds, then every repeat
// milliseconds if repeat is non zero. Starting an active timer restarts it.
func (t Timer) Start(cb TimerCb, timeout, repeat uint64) error {
	d, err := t.data()
	if err != nil {
		return err
	}
	s := newSlot(cb)
	if s.isEmpty() {
		return ErrNilCallback
	}
	d.cb = s
	return errOf(t.t.Start(timerTrampoline, timeout, repeat))
}

// StartDuration is [Timer.Start] with durations, rounded up to whole
// milliseconds.
func (t Timer) StartDuration(cb TimerCb, timeout, repeat time.Duration) error {
	return t.Start(cb, durationMillis(timeout), durationMillis(repeat))
}

// Stop disarms the timer. Idempotent.
func (t Timer) Stop() error {
	if t.t == nil {
		return ErrHandleClosed
	}
	return errOf(t.t.Stop())
}

// Again restarts a repeating timer using its repeat interval. It fails with
// [EINVAL] if the timer was never started.
func (t Timer) Again() error {
	if _, err := t.data(); err != nil {
		return err
	}
	return errOf(t.t.Again())
}

// SetRepeat sets the repeat interval in milliseconds, effective from the
// next expiry.
func (t Timer) SetRepeat(repeat uint64) {
	if t.t != nil {
		t.t.SetRepeat(repeat)
	}
}

// Repeat returns the repeat interval in milliseconds.
func (t Timer) Repeat() uint64 {
	if t.t == nil {
		return 0
	}
	return t.t.Repeat()
}

// DueIn returns the milliseconds until the timer fires, 0 if it is expired
// or stopped.
func (t Timer) DueIn() uint64 {
	if t.t == nil {
		return 0
	}
	return t.t.DueIn()
}

func durationMillis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64((d + time.Millisecond - 1) / time.Millisecond)
}
