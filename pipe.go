// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// Permission flags for [Pipe.Chmod].
const (
	PipeReadable = native.Readable
	PipeWritable = native.Writable
)

// Pipe is a local domain socket stream. IPC pipes may carry handles.
// The zero value is invalid.
type Pipe struct {
	p *native.Pipe
}

// NewPipe creates a pipe handle. ipc enables descriptor passing, see
// [Stream.Write2] and [Pipe.PendingCount].
func (l *Loop) NewPipe(ipc bool) (Pipe, error) {
	n, err := l.live()
	if err != nil {
		return Pipe{}, err
	}
	p := new(native.Pipe)
	if code := n.InitPipe(p, ipc); code != 0 {
		return Pipe{}, errOf(code)
	}
	initHandle(&p.Handle, &streamData{})
	return Pipe{p: p}, nil
}

// Handle upcasts h.
func (h Pipe) Handle() Handle { return Handle{h: &h.p.Handle} }

// Stream upcasts h.
func (h Pipe) Stream() Stream { return Stream{s: &h.p.Stream} }

// Close is shorthand for Handle().Close(cb).
func (h Pipe) Close(cb CloseCb) { h.Handle().Close(cb) }

// IPC reports whether the pipe can carry handles.
func (h Pipe) IPC() bool { return h.p.IPC() }

func (h Pipe) live() error {
	_, err := liveAddl[*streamData](&h.p.Handle)
	return err
}

// Open adopts an existing descriptor, e.g. one end of a socketpair.
func (h Pipe) Open(fd int) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.p.Open(fd))
}

// Bind binds to the socket path name. The path is removed on close.
func (h Pipe) Bind(name string) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.p.Bind(name))
}

// Connect connects to the socket path name. Failures, including a missing
// path, are delivered to cb.
func (h Pipe) Connect(name string, cb ConnectCb) (ConnectReq, error) {
	if err := h.live(); err != nil {
		return ConnectReq{}, err
	}
	return connect(cb, func(req *native.ConnectReq, ncb native.ConnectCb) int {
		return h.p.Connect(req, name, ncb)
	})
}

// PendingInstances sets the listen queue hint, it has no effect here.
func (h Pipe) PendingInstances(count int) { h.p.PendingInstances(count) }

// PendingCount returns the number of received handles not yet accepted.
func (h Pipe) PendingCount() int { return h.p.PendingCount() }

// PendingType returns the kind of the next handle to accept, which decides
// what to pass to [Stream.Accept].
func (h Pipe) PendingType() HandleType { return HandleType(h.p.PendingType()) }

// Getsockname returns the bound path.
func (h Pipe) Getsockname() (string, error) {
	name, code := h.p.Getsockname()
	return name, errOf(code)
}

// Getpeername returns the path of the connected peer.
func (h Pipe) Getpeername() (string, error) {
	name, code := h.p.Getpeername()
	return name, errOf(code)
}

// Chmod grants everyone read and/or write access to the bound socket, flags
// being [PipeReadable], [PipeWritable] or both.
func (h Pipe) Chmod(flags int) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.p.Chmod(flags))
}
