// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// HandleType identifies the kind of a [Handle].
type HandleType int

const (
	UnknownHandle   = HandleType(native.UnknownHandle)
	AsyncHandle     = HandleType(native.AsyncHandle)
	CheckHandle     = HandleType(native.CheckHandle)
	FsEventHandle   = HandleType(native.FsEventHandle)
	FsPollHandle    = HandleType(native.FsPollHandle)
	GenericHandle   = HandleType(native.GenericHandle)
	IdleHandle      = HandleType(native.IdleHandle)
	NamedPipeHandle = HandleType(native.NamedPipeHandle)
	PollHandle      = HandleType(native.PollHandle)
	PrepareHandle   = HandleType(native.PrepareHandle)
	ProcessHandle   = HandleType(native.ProcessHandle)
	StreamHandle    = HandleType(native.StreamHandle)
	TCPHandle       = HandleType(native.TCPHandle)
	TimerHandle     = HandleType(native.TimerHandle)
	TTYHandle       = HandleType(native.TTYHandle)
	UDPHandle       = HandleType(native.UDPHandle)
	SignalHandle    = HandleType(native.SignalHandle)
	FileHandle      = HandleType(native.FileHandle)
)

// String returns the lower case name of t, e.g. "tcp".
func (t HandleType) String() string { return native.HandleType(t).String() }

// CloseCb runs once a handle has been fully closed.
type CloseCb func(h Handle)

// handleData is the side data block of a handle, stored in the native
// handle's user slot from initialization until the close trampoline ran.
type handleData struct {
	closeCb slot[CloseCb]
	addl    handleAddl
}

// handleAddl is the per kind part of [handleData]. The set of
// implementations is closed.
type handleAddl interface {
	handleKind() HandleType
}

func (*timerData) handleKind() HandleType   { return TimerHandle }
func (*asyncData) handleKind() HandleType   { return AsyncHandle }
func (*checkData) handleKind() HandleType   { return CheckHandle }
func (*idleData) handleKind() HandleType    { return IdleHandle }
func (*prepareData) handleKind() HandleType { return PrepareHandle }
func (*pollData) handleKind() HandleType    { return PollHandle }
func (*signalData) handleKind() HandleType  { return SignalHandle }
func (*processData) handleKind() HandleType { return ProcessHandle }
func (*fsEventData) handleKind() HandleType { return FsEventHandle }
func (*fsPollData) handleKind() HandleType  { return FsPollHandle }
func (*streamData) handleKind() HandleType  { return StreamHandle }

// initHandle installs a fresh side data block on h.
func initHandle(h *native.Handle, addl handleAddl) {
	h.Data = &handleData{addl: addl}
}

// addlOf returns the per kind side data of h, ok is false if the handle was
// disposed or holds a different kind.
func addlOf[T handleAddl](h *native.Handle) (addl T, ok bool) {
	d, _ := h.Data.(*handleData)
	if d == nil {
		return addl, false
	}
	addl, ok = d.addl.(T)
	return addl, ok
}

// liveAddl is addlOf for operations, failing with [ErrHandleClosed] once
// the handle is closing.
func liveAddl[T handleAddl](h *native.Handle) (T, error) {
	addl, ok := addlOf[T](h)
	if !ok || h.IsClosing() {
		return addl, ErrHandleClosed
	}
	return addl, nil
}

// closeTrampoline runs the user close callback, then releases the side
// data block.
func closeTrampoline(h *native.Handle) {
	d, _ := h.Data.(*handleData)
	if d != nil {
		if cb, ok := d.closeCb.get(); ok {
			loopOf(h.Loop()).safeCall("close", func() { cb(Handle{h: h}) })
		}
	}
	h.Data = nil
}

// Handle is the base of every handle kind. The zero value is invalid.
type Handle struct {
	h *native.Handle
}

// Handle returns h, for symmetry with the concrete kinds.
func (h Handle) Handle() Handle { return h }

// Loop returns the loop the handle belongs to.
func (h Handle) Loop() *Loop {
	if h.h == nil {
		return nil
	}
	return loopOf(h.h.Loop())
}

// Type returns the kind of the handle.
func (h Handle) Type() HandleType {
	if h.h == nil {
		return UnknownHandle
	}
	return HandleType(h.h.Type())
}

// TypeName returns the name of the handle's kind.
func (h Handle) TypeName() string { return h.Type().String() }

// IsActive reports whether the handle is doing work, e.g. a started timer
// or a reading stream.
func (h Handle) IsActive() bool { return h.h != nil && h.h.IsActive() }

// IsClosing reports whether [Handle.Close] was called.
func (h Handle) IsClosing() bool { return h.h == nil || h.h.IsClosing() }

// IsDisposed reports whether the close callback has run.
func (h Handle) IsDisposed() bool { return h.h == nil || h.h.Data == nil }

// HasRef reports whether the handle keeps the loop alive while active.
func (h Handle) HasRef() bool { return h.h != nil && h.h.HasRef() }

// Ref references the handle. Idempotent.
func (h Handle) Ref() {
	if h.h != nil {
		h.h.Ref()
	}
}

// Unref unreferences the handle, so it no longer keeps the loop alive.
// Idempotent.
func (h Handle) Unref() {
	if h.h != nil {
		h.h.Unref()
	}
}

// Close closes the handle. cb, if non-nil, runs on the loop once closing
// completed, after which the handle is disposed. Calling Close again is a
// no-op.
func (h Handle) Close(cb CloseCb) {
	if h.h == nil || h.h.IsClosing() {
		return
	}
	d, _ := h.h.Data.(*handleData)
	if d == nil {
		return
	}
	d.closeCb = newSlot(cb)
	h.h.Close(closeTrampoline)
}

// Fileno returns the file descriptor backing the handle. It fails with
// [EINVAL] for kinds without one and [EBADF] if none is open yet.
func (h Handle) Fileno() (int, error) {
	if h.h == nil {
		return -1, EINVAL
	}
	fd, code := h.h.Fileno()
	return fd, errOf(code)
}

// SendBufferSize reads the socket send buffer size when value is 0, and sets
// it otherwise. It returns the size after the call.
func (h Handle) SendBufferSize(value int) (int, error) {
	return h.bufferSize(value, (*native.Handle).SendBufferSize)
}

// RecvBufferSize reads the socket receive buffer size when value is 0, and
// sets it otherwise. It returns the size after the call.
func (h Handle) RecvBufferSize(value int) (int, error) {
	return h.bufferSize(value, (*native.Handle).RecvBufferSize)
}

func (h Handle) bufferSize(value int, op func(*native.Handle, *int) int) (int, error) {
	if h.h == nil || value < 0 {
		return 0, EINVAL
	}
	if code := op(h.h, &value); code != 0 {
		return 0, errOf(code)
	}
	if value != 0 {
		// Read back, the kernel may adjust the requested size.
		value = 0
		if code := op(h.h, &value); code != 0 {
			return 0, errOf(code)
		}
	}
	return value, nil
}

func (h Handle) convErr(to HandleType) error {
	return &ConversionError{From: h.Type(), To: to}
}

// AsTimer converts h to a [Timer].
func (h Handle) AsTimer() (Timer, error) {
	if v, ok := h.outer().(*native.Timer); ok {
		return Timer{t: v}, nil
	}
	return Timer{}, h.convErr(TimerHandle)
}

// AsAsync converts h to an [Async].
func (h Handle) AsAsync() (Async, error) {
	if v, ok := h.outer().(*native.Async); ok {
		return Async{a: v}, nil
	}
	return Async{}, h.convErr(AsyncHandle)
}

// AsCheck converts h to a [Check].
func (h Handle) AsCheck() (Check, error) {
	if v, ok := h.outer().(*native.Check); ok {
		return Check{c: v}, nil
	}
	return Check{}, h.convErr(CheckHandle)
}

// AsIdle converts h to an [Idle].
func (h Handle) AsIdle() (Idle, error) {
	if v, ok := h.outer().(*native.Idle); ok {
		return Idle{i: v}, nil
	}
	return Idle{}, h.convErr(IdleHandle)
}

// AsPrepare converts h to a [Prepare].
func (h Handle) AsPrepare() (Prepare, error) {
	if v, ok := h.outer().(*native.Prepare); ok {
		return Prepare{p: v}, nil
	}
	return Prepare{}, h.convErr(PrepareHandle)
}

// AsPoll converts h to a [Poll].
func (h Handle) AsPoll() (Poll, error) {
	if v, ok := h.outer().(*native.Poll); ok {
		return Poll{p: v}, nil
	}
	return Poll{}, h.convErr(PollHandle)
}

// AsSignal converts h to a [Signal].
func (h Handle) AsSignal() (Signal, error) {
	if v, ok := h.outer().(*native.Signal); ok {
		return Signal{s: v}, nil
	}
	return Signal{}, h.convErr(SignalHandle)
}

// AsProcess converts h to a [Process].
func (h Handle) AsProcess() (Process, error) {
	if v, ok := h.outer().(*native.Process); ok {
		return Process{p: v}, nil
	}
	return Process{}, h.convErr(ProcessHandle)
}

// AsFsEvent converts h to an [FsEvent].
func (h Handle) AsFsEvent() (FsEvent, error) {
	if v, ok := h.outer().(*native.FsEvent); ok {
		return FsEvent{f: v}, nil
	}
	return FsEvent{}, h.convErr(FsEventHandle)
}

// AsFsPoll converts h to an [FsPoll].
func (h Handle) AsFsPoll() (FsPoll, error) {
	if v, ok := h.outer().(*native.FsPoll); ok {
		return FsPoll{f: v}, nil
	}
	return FsPoll{}, h.convErr(FsPollHandle)
}

// AsUDP converts h to a [UDP].
func (h Handle) AsUDP() (UDP, error) {
	if v, ok := h.outer().(*native.UDP); ok {
		return UDP{u: v}, nil
	}
	return UDP{}, h.convErr(UDPHandle)
}

// AsStream converts h to a [Stream], which succeeds for TCP, pipe and TTY
// handles.
func (h Handle) AsStream() (Stream, error) {
	if s := streamOf(h.outer()); s != nil {
		return Stream{s: s}, nil
	}
	return Stream{}, h.convErr(StreamHandle)
}

// AsTCP converts h to a [TCP].
func (h Handle) AsTCP() (TCP, error) {
	if v, ok := h.outer().(*native.TCP); ok {
		return TCP{t: v}, nil
	}
	return TCP{}, h.convErr(TCPHandle)
}

// AsPipe converts h to a [Pipe].
func (h Handle) AsPipe() (Pipe, error) {
	if v, ok := h.outer().(*native.Pipe); ok {
		return Pipe{p: v}, nil
	}
	return Pipe{}, h.convErr(NamedPipeHandle)
}

// AsTTY converts h to a [TTY].
func (h Handle) AsTTY() (TTY, error) {
	if v, ok := h.outer().(*native.TTY); ok {
		return TTY{t: v}, nil
	}
	return TTY{}, h.convErr(TTYHandle)
}

func (h Handle) outer() any {
	if h.h == nil {
		return nil
	}
	return h.h.Outer()
}

// streamOf returns the stream embedded in a native TCP, pipe or TTY.
func streamOf(outer any) *native.Stream {
	switch v := outer.(type) {
	case *native.TCP:
		return &v.Stream
	case *native.Pipe:
		return &v.Stream
	case *native.TTY:
		return &v.Stream
	}
	return nil
}
