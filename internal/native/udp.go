// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"net"
	"net/netip"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// UDP bind and receive flags.
const (
	UDPIPv6Only     = 1
	UDPPartial      = 2
	UDPReuseAddr    = 4
	UDPMmsgChunk    = 8
	UDPMmsgFree     = 16
	UDPLinuxRecvErr = 32
	UDPReusePort    = 64
	UDPRecvmmsg     = 256
)

// Membership selects joining or leaving a multicast group.
type Membership int

const (
	LeaveGroup Membership = iota
	JoinGroup
)

type (
	// UDPSendCb receives the outcome of a queued send.
	UDPSendCb func(req *UDPSendReq, status int)
	// UDPRecvCb receives a datagram. nread 0 with a nil addr means there was
	// nothing to read, nread 0 with a non-nil addr is an empty datagram.
	UDPRecvCb func(h *UDP, nread int, buf *Buf, addr unix.Sockaddr, flags uint)
)

// UDP is a datagram socket.
type UDP struct {
	Handle
	io        ioWatcher
	allocCb   AllocCb
	recvCb    UDPRecvCb
	sendQueue *queue.Queue
	completed []*UDPSendReq
	sendSize  int
	connected bool
}

// UDPSendReq is a queued datagram.
type UDPSendReq struct {
	Req
	cb     UDPSendCb
	handle *UDP
	bufs   []Buf
	addr   unix.Sockaddr
	status int
}

// Handle returns the socket the datagram was sent on.
func (r *UDPSendReq) Handle() *UDP { return r.handle }

// InitUDP initializes h. The socket is created lazily.
func (l *Loop) InitUDP(h *UDP) int {
	return l.InitUDPEx(h, unix.AF_UNSPEC)
}

// InitUDPEx initializes h. The low byte of flags is an address family,
// UDPRecvmmsg is accepted and ignored.
func (l *Loop) InitUDPEx(h *UDP, flags uint) int {
	family := int(flags & 0xFF)
	if flags&^(0xFF|UDPRecvmmsg) != 0 {
		return EINVAL
	}
	switch family {
	case unix.AF_UNSPEC, unix.AF_INET, unix.AF_INET6:
	default:
		return EINVAL
	}

	fd := -1
	if family != unix.AF_UNSPEC {
		var err error
		if fd, err = newSocket(family, unix.SOCK_DGRAM, 0); err != nil {
			return Translate(err)
		}
	}

	l.handleInit(&h.Handle, UDPHandle, h)
	h.io.init(fd, h.ioCallback)
	h.allocCb, h.recvCb = nil, nil
	h.sendQueue = queue.New()
	h.completed = nil
	h.sendSize = 0
	h.connected = false
	return 0
}

// Open adopts an existing datagram socket.
func (h *UDP) Open(fd int) int {
	if h.io.fd != -1 {
		return EBUSY
	}
	if err := setCloexecNonblock(fd); err != nil {
		return Translate(err)
	}
	h.io.fd = fd
	if _, err := unix.Getpeername(fd); err == nil {
		h.connected = true
	}
	return 0
}

func (h *UDP) ensureSocket(family int) int {
	if h.io.fd != -1 {
		return 0
	}
	fd, err := newSocket(family, unix.SOCK_DGRAM, 0)
	if err != nil {
		return Translate(err)
	}
	h.io.fd = fd
	return 0
}

// Bind binds to addr.
func (h *UDP) Bind(addr unix.Sockaddr, flags uint) int {
	if flags&^(UDPIPv6Only|UDPReuseAddr|UDPReusePort|UDPLinuxRecvErr) != 0 {
		return ENOTSUP
	}
	family := sockaddrFamily(addr)
	switch family {
	case unix.AF_INET, unix.AF_INET6:
	default:
		return EINVAL
	}
	if flags&UDPIPv6Only != 0 && family != unix.AF_INET6 {
		return EINVAL
	}
	if code := h.ensureSocket(family); code != 0 {
		return code
	}
	fd := h.io.fd

	if flags&UDPLinuxRecvErr != 0 {
		if code := setRecvErr(fd, family); code != 0 {
			return code
		}
	}
	if flags&UDPReuseAddr != 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return Translate(err)
		}
	}
	if flags&UDPReusePort != 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return Translate(err)
		}
	}
	if family == unix.AF_INET6 {
		on := 0
		if flags&UDPIPv6Only != 0 {
			on = 1
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, on); err != nil {
			return Translate(err)
		}
	}
	if err := unix.Bind(fd, addr); err != nil {
		if err == unix.EAFNOSUPPORT {
			return EINVAL
		}
		return Translate(err)
	}
	return 0
}

// maybeDeferredBind binds to the wildcard address of family if the socket
// isn't bound yet.
func (h *UDP) maybeDeferredBind(family int) int {
	if h.io.fd != -1 {
		if sa, err := unix.Getsockname(h.io.fd); err == nil {
			if _, port, ok := sockaddrIP(sa); ok && port != 0 {
				return 0
			}
		}
	}
	var wildcard unix.Sockaddr
	switch family {
	case unix.AF_INET:
		wildcard = &unix.SockaddrInet4{}
	case unix.AF_INET6:
		wildcard = &unix.SockaddrInet6{}
	default:
		return EINVAL
	}
	return h.Bind(wildcard, 0)
}

// Connect associates the socket with a peer. A nil addr dissolves the
// association.
func (h *UDP) Connect(addr unix.Sockaddr) int {
	if addr == nil {
		if !h.connected {
			return ENOTCONN
		}
		if err := disconnect(h.io.fd); err != nil {
			return Translate(err)
		}
		h.connected = false
		return 0
	}
	if h.connected {
		return EISCONN
	}
	family := sockaddrFamily(addr)
	if family != unix.AF_INET && family != unix.AF_INET6 {
		return EINVAL
	}
	if code := h.maybeDeferredBind(family); code != 0 {
		return code
	}
	for {
		err := unix.Connect(h.io.fd, addr)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Translate(err)
		}
		break
	}
	h.connected = true
	return 0
}

func (h *UDP) checkDest(addr unix.Sockaddr) int {
	if addr != nil {
		if h.connected {
			return EISCONN
		}
		if f := sockaddrFamily(addr); f != unix.AF_INET && f != unix.AF_INET6 {
			return EINVAL
		}
		return h.maybeDeferredBind(sockaddrFamily(addr))
	}
	if !h.connected {
		return EDESTADDRREQ
	}
	return 0
}

// Send queues a datagram. addr must be nil for connected sockets.
func (h *UDP) Send(req *UDPSendReq, bufs []Buf, addr unix.Sockaddr, cb UDPSendCb) int {
	if code := h.checkDest(addr); code != 0 {
		return code
	}

	emptyQueue := h.sendQueue.Length() == 0

	h.loop.reqInit(&req.Req, UDPSendReqType, req)
	req.cb = cb
	req.handle = h
	req.bufs = append([]Buf(nil), bufs...)
	req.addr = addr
	req.status = 0
	req.register()

	h.sendSize += bufsLen(bufs)
	h.sendQueue.Add(req)
	h.start()

	if emptyQueue && !h.io.active(pollOut) {
		h.sendPending()
		// Only feed if there is work left to complete.
		if h.sendQueue.Length() != 0 {
			h.loop.ioStart(&h.io, pollOut)
		}
	} else {
		h.loop.ioStart(&h.io, pollOut)
	}
	return 0
}

// TrySend sends immediately, failing with EAGAIN if sends are queued.
func (h *UDP) TrySend(bufs []Buf, addr unix.Sockaddr) int {
	if h.sendQueue.Length() != 0 {
		return EAGAIN
	}
	if code := h.checkDest(addr); code != 0 {
		return code
	}
	n, err := unix.SendmsgBuffers(h.io.fd, bufsToSlices(bufs), nil, addr, 0)
	if err != nil {
		if err == unix.EAGAIN {
			return EAGAIN
		}
		return Translate(err)
	}
	return n
}

func (h *UDP) sendPending() {
	for h.sendQueue.Length() != 0 && h.io.fd >= 0 {
		req := h.sendQueue.Peek().(*UDPSendReq)
		var to unix.Sockaddr
		if !h.connected {
			to = req.addr
		}
		n, err := unix.SendmsgBuffers(h.io.fd, bufsToSlices(req.bufs), nil, to, 0)
		if err == unix.EAGAIN || err == unix.ENOBUFS {
			return
		}
		if err != nil {
			req.status = Translate(err)
		} else {
			req.status = n
		}
		h.sendQueue.Remove()
		h.completed = append(h.completed, req)
		h.loop.ioFeed(&h.io)
	}
}

func (h *UDP) sendCompleted() {
	for len(h.completed) != 0 {
		completed := h.completed
		h.completed = nil
		for _, req := range completed {
			h.sendSize -= bufsLen(req.bufs)
			req.unregister()
			req.bufs = nil
			if req.cb != nil {
				status := req.status
				if status > 0 {
					status = 0
				}
				req.cb(req, status)
			}
		}
	}
	if h.sendQueue.Length() == 0 {
		h.loop.ioStop(&h.io, pollOut)
		if !h.io.active(pollIn) {
			h.stop()
		}
	}
}

func (h *UDP) ioCallback(events ioEvents) {
	if events&(pollIn|pollErr|pollHup) != 0 {
		h.recv()
	}
	if h.io.fd >= 0 && events&(pollOut|pollErr|pollHup) != 0 {
		h.sendPending()
		h.sendCompleted()
	}
}

// RecvStart starts receiving datagrams.
func (h *UDP) RecvStart(alloc AllocCb, recv UDPRecvCb) int {
	if alloc == nil || recv == nil {
		return EINVAL
	}
	if h.io.active(pollIn) {
		return EALREADY
	}
	if code := h.maybeDeferredBind(unix.AF_INET); code != 0 {
		return code
	}
	h.allocCb, h.recvCb = alloc, recv
	if code := h.loop.ioStart(&h.io, pollIn); code != 0 {
		return code
	}
	h.start()
	return 0
}

// RecvStop stops receiving. Idempotent.
func (h *UDP) RecvStop() int {
	h.loop.ioStop(&h.io, pollIn)
	if !h.io.active(pollOut) {
		h.stop()
	}
	h.allocCb, h.recvCb = nil, nil
	return 0
}

// UsingRecvmmsg reports whether batched receives are in use, they never are.
func (h *UDP) UsingRecvmmsg() bool { return false }

func (h *UDP) recv() {
	for count := maxReadsPerEvent; count > 0 && h.recvCb != nil && h.io.fd >= 0; count-- {
		var buf Buf
		h.allocCb(&h.Handle, readSuggestedSize, &buf)
		if buf.Base == nil || buf.Len == 0 {
			h.recvCb(h, ENOBUFS, &buf, nil, 0)
			return
		}

		n, _, recvflags, from, err := unix.Recvmsg(h.io.fd, buf.Bytes(), nil, 0)
		if err != nil {
			if err == unix.EAGAIN {
				h.recvCb(h, 0, &buf, nil, 0)
			} else {
				h.recvCb(h, Translate(err), &buf, nil, 0)
			}
			return
		}
		var flags uint
		if recvflags&unix.MSG_TRUNC != 0 {
			flags |= UDPPartial
		}
		h.recvCb(h, n, &buf, from, flags)
	}
}

// Getsockname returns the bound address.
func (h *UDP) Getsockname() (unix.Sockaddr, int) {
	return getName(h.io.fd, unix.Getsockname)
}

// Getpeername returns the connected peer.
func (h *UDP) Getpeername() (unix.Sockaddr, int) {
	if !h.connected {
		return nil, ENOTCONN
	}
	return getName(h.io.fd, unix.Getpeername)
}

// SendQueueSize returns the number of bytes queued for sending.
func (h *UDP) SendQueueSize() int { return h.sendSize }

// SendQueueCount returns the number of queued send requests.
func (h *UDP) SendQueueCount() int { return h.sendQueue.Length() + len(h.completed) }

func parseIP(s string) (netip.Addr, int) {
	if s == "" {
		return netip.Addr{}, 0
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, EINVAL
	}
	return a.Unmap(), 0
}

// SetMembership joins or leaves the multicast group addr, on the interface
// with address iface (any if empty).
func (h *UDP) SetMembership(addr, iface string, m Membership) int {
	if m != JoinGroup && m != LeaveGroup {
		return EINVAL
	}
	group, code := parseIP(addr)
	if code != 0 || !group.IsValid() {
		return EINVAL
	}
	ifAddr, code := parseIP(iface)
	if code != 0 {
		return code
	}

	if group.Is4() {
		if code := h.maybeDeferredBind(unix.AF_INET); code != 0 {
			return code
		}
		mreq := &unix.IPMreq{Multiaddr: group.As4()}
		if ifAddr.Is4() {
			mreq.Interface = ifAddr.As4()
		}
		opt := unix.IP_ADD_MEMBERSHIP
		if m == LeaveGroup {
			opt = unix.IP_DROP_MEMBERSHIP
		}
		return sockoptResult(unix.SetsockoptIPMreq(h.io.fd, unix.IPPROTO_IP, opt, mreq))
	}

	if code := h.maybeDeferredBind(unix.AF_INET6); code != 0 {
		return code
	}
	mreq := &unix.IPv6Mreq{Multiaddr: group.As16()}
	if iface != "" {
		if zone := ifAddr.Zone(); zone != "" {
			if ifi, err := net.InterfaceByName(zone); err == nil {
				mreq.Interface = uint32(ifi.Index)
			}
		}
	}
	opt := unix.IPV6_JOIN_GROUP
	if m == LeaveGroup {
		opt = unix.IPV6_LEAVE_GROUP
	}
	return sockoptResult(unix.SetsockoptIPv6Mreq(h.io.fd, unix.IPPROTO_IPV6, opt, mreq))
}

// SetSourceMembership joins or leaves a source specific multicast group.
func (h *UDP) SetSourceMembership(addr, iface, source string, m Membership) int {
	if m != JoinGroup && m != LeaveGroup {
		return EINVAL
	}
	group, code := parseIP(addr)
	if code != 0 || !group.IsValid() {
		return EINVAL
	}
	src, code := parseIP(source)
	if code != 0 || !src.IsValid() {
		return EINVAL
	}
	ifAddr, code := parseIP(iface)
	if code != 0 {
		return code
	}
	if !group.Is4() {
		return ENOTSUP
	}
	if code := h.maybeDeferredBind(unix.AF_INET); code != 0 {
		return code
	}
	var ifb [4]byte
	if ifAddr.Is4() {
		ifb = ifAddr.As4()
	}
	opt := ipAddSourceMembership
	if m == LeaveGroup {
		opt = ipDropSourceMembership
	}
	b := ipMreqSource(group.As4(), ifb, src.As4())
	return sockoptResult(unix.SetsockoptString(h.io.fd, unix.IPPROTO_IP, opt, string(b)))
}

func (h *UDP) isV6() bool {
	return socketFamily(h.io.fd) == unix.AF_INET6
}

func (h *UDP) setTTLOpt(v4opt, v6opt, v int) int {
	if h.io.fd < 0 {
		return EBADF
	}
	if h.isV6() {
		return sockoptResult(unix.SetsockoptInt(h.io.fd, unix.IPPROTO_IPV6, v6opt, v))
	}
	return sockoptResult(unix.SetsockoptInt(h.io.fd, unix.IPPROTO_IP, v4opt, v))
}

// SetMulticastLoop toggles local delivery of multicast datagrams.
func (h *UDP) SetMulticastLoop(on bool) int {
	v := 0
	if on {
		v = 1
	}
	if h.io.fd >= 0 && !h.isV6() {
		return sockoptResult(unix.SetsockoptByte(h.io.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, byte(v)))
	}
	return h.setTTLOpt(unix.IP_MULTICAST_LOOP, unix.IPV6_MULTICAST_LOOP, v)
}

// SetMulticastTTL sets the multicast hop limit, 1 to 255.
func (h *UDP) SetMulticastTTL(ttl int) int {
	if ttl < 1 || ttl > 255 {
		return EINVAL
	}
	if h.io.fd >= 0 && !h.isV6() {
		return sockoptResult(unix.SetsockoptByte(h.io.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, byte(ttl)))
	}
	return h.setTTLOpt(unix.IP_MULTICAST_TTL, unix.IPV6_MULTICAST_HOPS, ttl)
}

// SetTTL sets the unicast hop limit, 1 to 255.
func (h *UDP) SetTTL(ttl int) int {
	if ttl < 1 || ttl > 255 {
		return EINVAL
	}
	return h.setTTLOpt(unix.IP_TTL, unix.IPV6_UNICAST_HOPS, ttl)
}

// SetBroadcast toggles SO_BROADCAST.
func (h *UDP) SetBroadcast(on bool) int {
	if h.io.fd < 0 {
		return EBADF
	}
	v := 0
	if on {
		v = 1
	}
	return sockoptResult(unix.SetsockoptInt(h.io.fd, unix.SOL_SOCKET, unix.SO_BROADCAST, v))
}

// SetMulticastInterface selects the outgoing interface by address, empty
// meaning the default.
func (h *UDP) SetMulticastInterface(iface string) int {
	if h.io.fd < 0 {
		return EBADF
	}
	a, code := parseIP(iface)
	if code != 0 {
		return code
	}
	if h.isV6() {
		idx := 0
		if zone := a.Zone(); zone != "" {
			ifi, err := net.InterfaceByName(zone)
			if err != nil {
				return EINVAL
			}
			idx = ifi.Index
		}
		return sockoptResult(unix.SetsockoptInt(h.io.fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_IF, idx))
	}
	if a.IsValid() && !a.Is4() {
		return EINVAL
	}
	var b [4]byte
	if a.IsValid() {
		b = a.As4()
	}
	return sockoptResult(unix.SetsockoptInet4Addr(h.io.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, b))
}

func sockoptResult(err error) int {
	if err != nil {
		return Translate(err)
	}
	return 0
}

func (h *UDP) close() {
	h.loop.ioClose(&h.io)
	h.stop()
	if h.io.fd != -1 {
		closeOwned(h.io.fd)
		h.io.fd = -1
	}
	h.allocCb, h.recvCb = nil, nil
}

func (h *UDP) finishClose() {
	for h.sendQueue.Length() != 0 {
		req := h.sendQueue.Remove().(*UDPSendReq)
		req.status = ECANCELED
		h.completed = append(h.completed, req)
	}
	h.sendCompleted()
}
