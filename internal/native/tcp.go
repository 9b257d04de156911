// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"golang.org/x/sys/unix"
)

// TCPIPv6Only disables dual stack binding.
const TCPIPv6Only = 1

const (
	tcpNoDelay = 1 << iota
	tcpKeepAlive
)

// TCP is a TCP stream.
type TCP struct {
	Stream
	family    int
	opts      int
	keepDelay int
}

// InitTCP initializes h. The socket is created lazily.
func (l *Loop) InitTCP(h *TCP) int {
	return l.InitTCPEx(h, unix.AF_UNSPEC)
}

// InitTCPEx initializes h. The low byte of flags is an address family, if
// not AF_UNSPEC the socket is created immediately.
func (l *Loop) InitTCPEx(h *TCP, flags uint) int {
	if flags&^0xFF != 0 {
		return EINVAL
	}
	family := int(flags & 0xFF)
	switch family {
	case unix.AF_UNSPEC, unix.AF_INET, unix.AF_INET6:
	default:
		return EINVAL
	}
	l.streamInit(&h.Stream, TCPHandle, h)
	h.family, h.opts, h.keepDelay = unix.AF_UNSPEC, 0, 0
	if family != unix.AF_UNSPEC {
		if code := h.ensureSocket(family, 0); code != 0 {
			l.handleRemove(&h.Handle)
			return code
		}
	}
	return 0
}

func (h *TCP) ensureSocket(family int, flags streamFlags) int {
	if h.io.fd != -1 {
		h.sflags |= flags
		return 0
	}
	fd, err := newSocket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return Translate(err)
	}
	if code := h.open(fd, flags); code != 0 {
		_ = closeFD(fd)
		return code
	}
	h.family = family
	return 0
}

func (h *TCP) applySockopts() {
	if h.opts&tcpNoDelay != 0 {
		_ = setNoDelay(h.io.fd, true)
	}
	if h.opts&tcpKeepAlive != 0 {
		_ = setKeepAlive(h.io.fd, true, h.keepDelay)
	}
}

// Open adopts an existing socket. The descriptor is made non-blocking.
func (h *TCP) Open(fd int) int {
	if h.io.fd != -1 {
		return EBUSY
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return Translate(err)
	}
	if code := h.open(fd, streamReadable|streamWritable); code != 0 {
		return code
	}
	h.family = socketFamily(fd)
	return 0
}

// Bind binds to addr. Address in use errors are reported by Listen or
// Connect rather than here.
func (h *TCP) Bind(addr unix.Sockaddr, flags uint) int {
	if flags&^TCPIPv6Only != 0 {
		return EINVAL
	}
	family := sockaddrFamily(addr)
	switch family {
	case unix.AF_INET, unix.AF_INET6:
	default:
		return EINVAL
	}
	if flags&TCPIPv6Only != 0 && family != unix.AF_INET6 {
		return EINVAL
	}
	if code := h.ensureSocket(family, 0); code != 0 {
		return code
	}

	if err := unix.SetsockoptInt(h.io.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return Translate(err)
	}
	if family == unix.AF_INET6 {
		on := 0
		if flags&TCPIPv6Only != 0 {
			on = 1
		}
		if err := unix.SetsockoptInt(h.io.fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, on); err != nil {
			return Translate(err)
		}
	}

	if err := unix.Bind(h.io.fd, addr); err != nil {
		switch err {
		case unix.EADDRINUSE:
			h.delayedError = EADDRINUSE
		case unix.EAFNOSUPPORT:
			return EINVAL
		default:
			return Translate(err)
		}
	}
	h.sflags |= streamBound
	return 0
}

func (h *TCP) listen(backlog int, cb ConnectionCb) int {
	if h.delayedError != 0 {
		return h.delayedError
	}
	if code := h.ensureSocket(unix.AF_INET, 0); code != 0 {
		return code
	}
	return h.listenFD(backlog, cb)
}

// Connect starts connecting to addr. cb runs with the outcome, never
// synchronously.
func (h *TCP) Connect(req *ConnectReq, addr unix.Sockaddr, cb ConnectCb) int {
	if h.connectReq != nil {
		return EALREADY
	}
	if h.IsClosing() {
		return EINVAL
	}
	family := sockaddrFamily(addr)
	switch family {
	case unix.AF_INET, unix.AF_INET6:
	default:
		return EINVAL
	}
	if code := h.ensureSocket(family, streamReadable|streamWritable); code != 0 {
		return code
	}

	var err error
	if h.delayedError == 0 {
		for {
			err = unix.Connect(h.io.fd, addr)
			if err != unix.EINTR {
				break
			}
		}
	}
	if code := h.connect(req, cb, err); code != 0 {
		return code
	}
	h.start()
	return 0
}

// NoDelay toggles TCP_NODELAY. The setting is remembered and applied once
// the socket exists.
func (h *TCP) NoDelay(enable bool) int {
	if h.io.fd != -1 {
		if err := setNoDelay(h.io.fd, enable); err != nil {
			return Translate(err)
		}
	}
	if enable {
		h.opts |= tcpNoDelay
	} else {
		h.opts &^= tcpNoDelay
	}
	return 0
}

// KeepAlive toggles SO_KEEPALIVE, delay is the initial idle time in seconds.
func (h *TCP) KeepAlive(enable bool, delay int) int {
	if enable && delay < 1 {
		return EINVAL
	}
	if h.io.fd != -1 {
		if err := setKeepAlive(h.io.fd, enable, delay); err != nil {
			return Translate(err)
		}
	}
	if enable {
		h.opts |= tcpKeepAlive
		h.keepDelay = delay
	} else {
		h.opts &^= tcpKeepAlive
	}
	return 0
}

// SimultaneousAccepts has no effect on this platform.
func (h *TCP) SimultaneousAccepts(bool) int { return 0 }

// Getsockname returns the bound address.
func (h *TCP) Getsockname() (unix.Sockaddr, int) {
	if h.delayedError != 0 {
		return nil, h.delayedError
	}
	return getName(h.io.fd, unix.Getsockname)
}

// Getpeername returns the connected peer's address.
func (h *TCP) Getpeername() (unix.Sockaddr, int) {
	if h.delayedError != 0 {
		return nil, h.delayedError
	}
	return getName(h.io.fd, unix.Getpeername)
}

// CloseReset closes the handle, sending RST instead of FIN.
func (h *TCP) CloseReset(cb CloseCb) int {
	if h.IsShutting() {
		return EINVAL
	}
	if h.io.fd != -1 {
		if err := unix.SetsockoptLinger(h.io.fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0}); err != nil {
			return Translate(err)
		}
	}
	h.Close(cb)
	return 0
}

func (h *TCP) close() {
	h.closeStream()
}

func getName(fd int, fn func(int) (unix.Sockaddr, error)) (unix.Sockaddr, int) {
	if fd < 0 {
		return nil, EBADF
	}
	sa, err := fn(fd)
	if err != nil {
		return nil, Translate(err)
	}
	return sa, 0
}

func setNoDelay(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

func setKeepAlive(fd int, enable bool, delay int) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v); err != nil {
		return err
	}
	if !enable {
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpKeepIdle, delay); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 1); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 10)
}
