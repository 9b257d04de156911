// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"

	"github.com/joeycumines/go-uv/internal/native"
)

// TCPIPv6Only disables dual stack binding for [TCP.Bind].
const TCPIPv6Only = native.TCPIPv6Only

// TCP is a TCP stream, either a listener or a connection.
// The zero value is invalid.
type TCP struct {
	t *native.TCP
}

// NewTCP creates a TCP handle. The socket is created on first use.
func (l *Loop) NewTCP() (TCP, error) {
	return l.NewTCPEx(0)
}

// NewTCPEx creates a TCP handle. The low byte of flags may name an address
// family (e.g. unix.AF_INET6), in which case the socket is created
// immediately.
func (l *Loop) NewTCPEx(flags uint) (TCP, error) {
	n, err := l.live()
	if err != nil {
		return TCP{}, err
	}
	t := new(native.TCP)
	if code := n.InitTCPEx(t, flags); code != 0 {
		return TCP{}, errOf(code)
	}
	initHandle(&t.Handle, &streamData{})
	return TCP{t: t}, nil
}

// Handle upcasts h.
func (h TCP) Handle() Handle { return Handle{h: &h.t.Handle} }

// Stream upcasts h.
func (h TCP) Stream() Stream { return Stream{s: &h.t.Stream} }

// Close is shorthand for Handle().Close(cb).
func (h TCP) Close(cb CloseCb) { h.Handle().Close(cb) }

func (h TCP) live() error {
	_, err := liveAddl[*streamData](&h.t.Handle)
	return err
}

// Open adopts an existing socket descriptor.
func (h TCP) Open(fd int) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.t.Open(fd))
}

// Bind binds the socket to addr. An address already in use is reported by
// [Stream.Listen] or [TCP.Connect] rather than here.
func (h TCP) Bind(addr netip.AddrPort, flags uint) error {
	if err := h.live(); err != nil {
		return err
	}
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return errOf(h.t.Bind(sa, flags))
}

// Connect connects to addr. cb always runs asynchronously, including for
// refused connections.
func (h TCP) Connect(addr netip.AddrPort, cb ConnectCb) (ConnectReq, error) {
	if err := h.live(); err != nil {
		return ConnectReq{}, err
	}
	sa, err := toSockaddr(addr)
	if err != nil {
		return ConnectReq{}, err
	}
	return connect(cb, func(req *native.ConnectReq, ncb native.ConnectCb) int {
		return h.t.Connect(req, sa, ncb)
	})
}

// NoDelay toggles Nagle's algorithm off (true) or on.
func (h TCP) NoDelay(enable bool) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.t.NoDelay(enable))
}

// KeepAlive toggles TCP keep-alive, delay is the initial idle time in
// seconds and is ignored when disabling.
func (h TCP) KeepAlive(enable bool, delay int) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.t.KeepAlive(enable, delay))
}

// SimultaneousAccepts is accepted for portability, it has no effect here.
func (h TCP) SimultaneousAccepts(enable bool) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.t.SimultaneousAccepts(enable))
}

// Getsockname returns the local address.
func (h TCP) Getsockname() (netip.AddrPort, error) {
	sa, code := h.t.Getsockname()
	if code != 0 {
		return netip.AddrPort{}, errOf(code)
	}
	return fromSockaddr(sa), nil
}

// Getpeername returns the remote address of a connected socket.
func (h TCP) Getpeername() (netip.AddrPort, error) {
	sa, code := h.t.Getpeername()
	if code != 0 {
		return netip.AddrPort{}, errOf(code)
	}
	return fromSockaddr(sa), nil
}

// CloseReset closes the connection with a RST. It fails, without closing,
// if a shutdown was already requested.
func (h TCP) CloseReset(cb CloseCb) error {
	d, _ := h.t.Data.(*handleData)
	if d == nil || h.t.IsClosing() {
		return ErrHandleClosed
	}
	prev := d.closeCb
	d.closeCb = newSlot(cb)
	if code := h.t.CloseReset(closeTrampoline); code != 0 {
		d.closeCb = prev
		return errOf(code)
	}
	return nil
}
