// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"

	"github.com/joeycumines/go-uv/internal/native"
	"golang.org/x/sys/unix"
)

// UDP flags, for [Loop.NewUDPEx], [UDP.Bind] and the receive callback.
const (
	UDPIPv6Only     = native.UDPIPv6Only
	UDPPartial      = native.UDPPartial
	UDPReuseAddr    = native.UDPReuseAddr
	UDPMmsgChunk    = native.UDPMmsgChunk
	UDPMmsgFree     = native.UDPMmsgFree
	UDPLinuxRecvErr = native.UDPLinuxRecvErr
	UDPReusePort    = native.UDPReusePort
	UDPRecvmmsg     = native.UDPRecvmmsg
)

// Membership selects joining or leaving a multicast group.
type Membership int

const (
	LeaveGroup = Membership(native.LeaveGroup)
	JoinGroup  = Membership(native.JoinGroup)
)

type (
	// UDPSendCb receives the outcome of a queued datagram. As with
	// [WriteCb], a nil callback leaves the side data to the garbage collector.
	UDPSendCb func(req UDPSendReq, err error)

	// UDPRecvCb receives a datagram of nread bytes from addr. nread 0 with an
	// invalid addr means there was nothing to read, while nread 0 with a
	// valid addr is an empty datagram. flags may contain [UDPPartial].
	UDPRecvCb func(h UDP, nread int, buf ReadonlyBuf, addr netip.AddrPort, flags uint, err error)
)

type udpData struct {
	recvCb slot[UDPRecvCb]
}

func (*udpData) streamKind() HandleType { return UDPHandle }

type udpSendData struct{ cb slot[UDPSendCb] }

// UDP is a datagram socket.
// The zero value is invalid.
type UDP struct {
	u *native.UDP
}

// NewUDP creates a UDP handle. The socket is created on first use.
func (l *Loop) NewUDP() (UDP, error) {
	return l.NewUDPEx(0)
}

// NewUDPEx creates a UDP handle. The low byte of flags may name an address
// family, creating the socket immediately. [UDPRecvmmsg] is accepted and
// ignored.
func (l *Loop) NewUDPEx(flags uint) (UDP, error) {
	n, err := l.live()
	if err != nil {
		return UDP{}, err
	}
	u := new(native.UDP)
	if code := n.InitUDPEx(u, flags); code != 0 {
		return UDP{}, errOf(code)
	}
	initHandle(&u.Handle, &streamData{addl: &udpData{}})
	return UDP{u: u}, nil
}

// Handle upcasts h.
func (h UDP) Handle() Handle { return Handle{h: &h.u.Handle} }

// Close is shorthand for Handle().Close(cb).
func (h UDP) Close(cb CloseCb) { h.Handle().Close(cb) }

func (h UDP) data() (*streamData, *udpData, error) {
	d, err := liveAddl[*streamData](&h.u.Handle)
	if err != nil {
		return nil, nil, err
	}
	ud, ok := d.addl.(*udpData)
	if !ok {
		return nil, nil, ErrHandleClosed
	}
	return d, ud, nil
}

func (h UDP) live() error {
	_, _, err := h.data()
	return err
}

// Open adopts an existing datagram socket.
func (h UDP) Open(fd int) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.u.Open(fd))
}

// Bind binds to addr. flags may contain [UDPIPv6Only], [UDPReuseAddr] and
// [UDPReusePort].
func (h UDP) Bind(addr netip.AddrPort, flags uint) error {
	if err := h.live(); err != nil {
		return err
	}
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}
	return errOf(h.u.Bind(sa, flags))
}

// Connect associates the socket with addr, or dissolves the association
// when addr is the zero value.
func (h UDP) Connect(addr netip.AddrPort) error {
	if err := h.live(); err != nil {
		return err
	}
	var sa unix.Sockaddr
	if addr.IsValid() {
		var err error
		if sa, err = toSockaddr(addr); err != nil {
			return err
		}
	}
	return errOf(h.u.Connect(sa))
}

func udpDest(addr netip.AddrPort) (unix.Sockaddr, error) {
	if !addr.IsValid() {
		return nil, nil
	}
	return toSockaddr(addr)
}

func udpSendTrampoline(req *native.UDPSendReq, status int) {
	completeReq(&req.Req, "udp send", func(d *udpSendData) {
		if cb, ok := d.cb.get(); ok {
			cb(UDPSendReq{r: req}, errOf(status))
		}
	})
}

// Send queues a datagram to addr, which must be the zero value on a
// connected socket and valid otherwise. The bytes of bufs must stay valid
// until cb runs.
func (h UDP) Send(bufs []ReadonlyBuf, addr netip.AddrPort, cb UDPSendCb) (UDPSendReq, error) {
	if err := h.live(); err != nil {
		return UDPSendReq{}, err
	}
	sa, err := udpDest(addr)
	if err != nil {
		return UDPSendReq{}, err
	}
	req := new(native.UDPSendReq)
	d := &udpSendData{cb: newSlot(cb)}
	initReq(&req.Req, d)
	if code := h.u.Send(req, records(bufs), sa, trampoline(&d.cb, udpSendTrampoline)); code != 0 {
		req.Data = nil
		return UDPSendReq{}, errOf(code)
	}
	return UDPSendReq{r: req}, nil
}

// TrySend sends a datagram immediately, failing with [EAGAIN] while sends
// are queued.
func (h UDP) TrySend(bufs []ReadonlyBuf, addr netip.AddrPort) (int, error) {
	if err := h.live(); err != nil {
		return 0, err
	}
	sa, err := udpDest(addr)
	if err != nil {
		return 0, err
	}
	return result(h.u.TrySend(records(bufs), sa))
}

func udpRecvTrampoline(u *native.UDP, nread int, buf *native.Buf, sa unix.Sockaddr, flags uint) {
	d, ok := addlOf[*streamData](&u.Handle)
	if !ok {
		return
	}
	ud, ok := d.addl.(*udpData)
	if !ok {
		return
	}
	cb, ok := ud.recvCb.get()
	if !ok {
		return
	}
	var err error
	if nread < 0 {
		err, nread = errOf(nread), 0
	}
	view := viewOf(buf, nread)
	addr := fromSockaddr(sa)
	loopOf(u.Loop()).safeCall("udp recv", func() { cb(UDP{u: u}, nread, view, addr, flags, err) })
}

// RecvStart starts receiving datagrams. alloc may be nil, as for
// [Stream.ReadStart]. Binds to 0.0.0.0:0 if not yet bound.
func (h UDP) RecvStart(alloc AllocCb, recv UDPRecvCb) error {
	d, ud, err := h.data()
	if err != nil {
		return err
	}
	recvSlot := newSlot(recv)
	if recvSlot.isEmpty() {
		return ErrNilCallback
	}
	d.allocCb, ud.recvCb = newSlot(alloc), recvSlot
	return errOf(h.u.RecvStart(allocTrampoline, udpRecvTrampoline))
}

// RecvStop stops receiving. Idempotent.
func (h UDP) RecvStop() error { return errOf(h.u.RecvStop()) }

// UsingRecvmmsg reports whether batched receives are in use.
func (h UDP) UsingRecvmmsg() bool { return h.u.UsingRecvmmsg() }

// Getsockname returns the bound address.
func (h UDP) Getsockname() (netip.AddrPort, error) {
	sa, code := h.u.Getsockname()
	if code != 0 {
		return netip.AddrPort{}, errOf(code)
	}
	return fromSockaddr(sa), nil
}

// Getpeername returns the connected address, failing with [ENOTCONN].
func (h UDP) Getpeername() (netip.AddrPort, error) {
	sa, code := h.u.Getpeername()
	if code != 0 {
		return netip.AddrPort{}, errOf(code)
	}
	return fromSockaddr(sa), nil
}

// SendQueueSize returns the number of bytes queued for sending.
func (h UDP) SendQueueSize() int { return h.u.SendQueueSize() }

// SendQueueCount returns the number of send requests not yet completed.
func (h UDP) SendQueueCount() int { return h.u.SendQueueCount() }

// SetMembership joins or leaves the multicast group addr on the interface
// with address iface, empty for any.
func (h UDP) SetMembership(addr, iface string, m Membership) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.u.SetMembership(addr, iface, native.Membership(m)))
}

// SetSourceMembership is [UDP.SetMembership] for a source specific group.
func (h UDP) SetSourceMembership(addr, iface, source string, m Membership) error {
	if err := h.live(); err != nil {
		return err
	}
	return errOf(h.u.SetSourceMembership(addr, iface, source, native.Membership(m)))
}

// SetMulticastLoop toggles local delivery of sent multicast datagrams.
func (h UDP) SetMulticastLoop(on bool) error { return errOf(h.u.SetMulticastLoop(on)) }

// SetMulticastTTL sets the multicast time to live, 1 through 255.
func (h UDP) SetMulticastTTL(ttl int) error { return errOf(h.u.SetMulticastTTL(ttl)) }

// SetTTL sets the unicast time to live, 1 through 255.
func (h UDP) SetTTL(ttl int) error { return errOf(h.u.SetTTL(ttl)) }

// SetBroadcast toggles SO_BROADCAST.
func (h UDP) SetBroadcast(on bool) error { return errOf(h.u.SetBroadcast(on)) }

// SetMulticastInterface selects the outgoing multicast interface by
// address, empty for the default.
func (h UDP) SetMulticastInterface(iface string) error {
	return errOf(h.u.SetMulticastInterface(iface))
}

// UDPSendReq is a queued datagram.
type UDPSendReq struct {
	r *native.UDPSendReq
}

// Req upcasts r.
func (r UDPSendReq) Req() Req { return Req{r: &r.r.Req} }

// Handle returns the socket the datagram was sent on.
func (r UDPSendReq) Handle() UDP { return UDP{u: r.r.Handle()} }
