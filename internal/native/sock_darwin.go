// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

import "golang.org/x/sys/unix"

const (
	recvmsgFlags = 0
	msgNoSignal  = 0

	tcpKeepIdle = unix.TCP_KEEPALIVE

	ipAddSourceMembership  = 70
	ipDropSourceMembership = 71
)

func newSocket(domain, typ, proto int) (int, error) {
	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return -1, err
	}
	if err := setCloexecNonblock(fd); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
	return fd, nil
}

func acceptFD(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := setCloexecNonblock(nfd); err != nil {
		_ = unix.Close(nfd)
		return -1, err
	}
	_ = unix.SetsockoptInt(nfd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
	return nfd, nil
}

func socketpair(typ int) ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, typ, 0)
	if err != nil {
		return fds, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return fds, nil
}

// ipMreqSource lays out struct ip_mreq_source.
func ipMreqSource(group, iface, source [4]byte) []byte {
	b := make([]byte, 0, 12)
	b = append(b, group[:]...)
	b = append(b, source[:]...)
	return append(b, iface[:]...)
}

// setRecvErr is a no-op, the option only exists on linux.
func setRecvErr(int, int) int { return 0 }
