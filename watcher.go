// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

type (
	// AsyncCb runs on the loop after one or more calls to [Async.Send].
	AsyncCb   func(h Async)
	CheckCb   func(h Check)
	IdleCb    func(h Idle)
	PrepareCb func(h Prepare)
)

type (
	asyncData   struct{ cb slot[AsyncCb] }
	checkData   struct{ cb slot[CheckCb] }
	idleData    struct{ cb slot[IdleCb] }
	prepareData struct{ cb slot[PrepareCb] }
)

// Async wakes the loop from any goroutine. It is active from creation.
type Async struct {
	a *native.Async
}

// Check runs its callback once per iteration, right after polling.
type Check struct {
	c *native.Check
}

// Idle runs its callback once per iteration, and makes the loop poll
// without blocking while active.
type Idle struct {
	i *native.Idle
}

// Prepare runs its callback once per iteration, right before polling.
type Prepare struct {
	p *native.Prepare
}

// NewAsync creates an async handle. cb may be nil, in which case sends only
// wake the loop.
func (l *Loop) NewAsync(cb AsyncCb) (Async, error) {
	n, err := l.live()
	if err != nil {
		return Async{}, err
	}
	a := new(native.Async)
	d := &asyncData{cb: newSlot(cb)}
	if code := n.InitAsync(a, trampoline(&d.cb, asyncTrampoline)); code != 0 {
		return Async{}, errOf(code)
	}
	initHandle(&a.Handle, d)
	return Async{a: a}, nil
}

func asyncTrampoline(a *native.Async) {
	d, ok := addlOf[*asyncData](&a.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(a.Loop()).safeCall("async", func() { cb(Async{a: a}) })
	}
}

// Handle upcasts h.
func (h Async) Handle() Handle { return Handle{h: &h.a.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Async) Close(cb CloseCb) { h.Handle().Close(cb) }

// Send wakes the loop to run the callback. Sends issued before the callback
// runs are coalesced into one invocation. Safe to call from any goroutine.
func (h Async) Send() error {
	return errOf(h.a.Send())
}

// NewCheck creates a stopped check handle.
func (l *Loop) NewCheck() (Check, error) {
	n, err := l.live()
	if err != nil {
		return Check{}, err
	}
	c := new(native.Check)
	if code := n.InitCheck(c); code != 0 {
		return Check{}, errOf(code)
	}
	initHandle(&c.Handle, &checkData{})
	return Check{c: c}, nil
}

func checkTrampoline(c *native.Check) {
	d, ok := addlOf[*checkData](&c.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(c.Loop()).safeCall("check", func() { cb(Check{c: c}) })
	}
}

// Handle upcasts h.
func (h Check) Handle() Handle { return Handle{h: &h.c.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Check) Close(cb CloseCb) { h.Handle().Close(cb) }

// Start starts the handle, a no-op if already active.
func (h Check) Start(cb CheckCb) error {
	d, err := liveAddl[*checkData](&h.c.Handle)
	if err != nil {
		return err
	}
	if h.c.IsActive() {
		return nil
	}
	if d.cb = newSlot(cb); d.cb.isEmpty() {
		return ErrNilCallback
	}
	return errOf(h.c.Start(checkTrampoline))
}

// Stop stops the handle. Idempotent.
func (h Check) Stop() error { return errOf(h.c.Stop()) }

// NewIdle creates a stopped idle handle.
func (l *Loop) NewIdle() (Idle, error) {
	n, err := l.live()
	if err != nil {
		return Idle{}, err
	}
	i := new(native.Idle)
	if code := n.InitIdle(i); code != 0 {
		return Idle{}, errOf(code)
	}
	initHandle(&i.Handle, &idleData{})
	return Idle{i: i}, nil
}

func idleTrampoline(i *native.Idle) {
	d, ok := addlOf[*idleData](&i.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(i.Loop()).safeCall("idle", func() { cb(Idle{i: i}) })
	}
}

// Handle upcasts h.
func (h Idle) Handle() Handle { return Handle{h: &h.i.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Idle) Close(cb CloseCb) { h.Handle().Close(cb) }

// Start starts the handle, a no-op if already active.
func (h Idle) Start(cb IdleCb) error {
	d, err := liveAddl[*idleData](&h.i.Handle)
	if err != nil {
		return err
	}
	if h.i.IsActive() {
		return nil
	}
	if d.cb = newSlot(cb); d.cb.isEmpty() {
		return ErrNilCallback
	}
	return errOf(h.i.Start(idleTrampoline))
}

// Stop stops the handle. Idempotent.
func (h Idle) Stop() error { return errOf(h.i.Stop()) }

// NewPrepare creates a stopped prepare handle.
func (l *Loop) NewPrepare() (Prepare, error) {
	n, err := l.live()
	if err != nil {
		return Prepare{}, err
	}
	p := new(native.Prepare)
	if code := n.InitPrepare(p); code != 0 {
		return Prepare{}, errOf(code)
	}
	initHandle(&p.Handle, &prepareData{})
	return Prepare{p: p}, nil
}

func prepareTrampoline(p *native.Prepare) {
	d, ok := addlOf[*prepareData](&p.Handle)
	if !ok {
		return
	}
	if cb, ok := d.cb.get(); ok {
		loopOf(p.Loop()).safeCall("prepare", func() { cb(Prepare{p: p}) })
	}
}

// Handle upcasts h.
func (h Prepare) Handle() Handle { return Handle{h: &h.p.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h Prepare) Close(cb CloseCb) { h.Handle().Close(cb) }

// Start starts the handle, a no-op if already active.
func (h Prepare) Start(cb PrepareCb) error {
	d, err := liveAddl[*prepareData](&h.p.Handle)
	if err != nil {
		return err
	}
	if h.p.IsActive() {
		return nil
	}
	if d.cb = newSlot(cb); d.cb.isEmpty() {
		return ErrNilCallback
	}
	return errOf(h.p.Start(prepareTrampoline))
}

// Stop stops the handle. Idempotent.
func (h Prepare) Stop() error { return errOf(h.p.Stop()) }
