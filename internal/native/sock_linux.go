// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package native

import "golang.org/x/sys/unix"

const (
	recvmsgFlags = unix.MSG_CMSG_CLOEXEC
	msgNoSignal  = unix.MSG_NOSIGNAL

	tcpKeepIdle = unix.TCP_KEEPIDLE

	ipAddSourceMembership  = unix.IP_ADD_SOURCE_MEMBERSHIP
	ipDropSourceMembership = unix.IP_DROP_SOURCE_MEMBERSHIP
)

func newSocket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}

func acceptFD(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	return nfd, err
}

func socketpair(typ int) ([2]int, error) {
	return unix.Socketpair(unix.AF_UNIX, typ|unix.SOCK_CLOEXEC, 0)
}

// ipMreqSource lays out struct ip_mreq_source.
func ipMreqSource(group, iface, source [4]byte) []byte {
	b := make([]byte, 0, 12)
	b = append(b, group[:]...)
	b = append(b, iface[:]...)
	return append(b, source[:]...)
}

func setRecvErr(fd, family int) int {
	if family == unix.AF_INET6 {
		return sockoptResult(unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVERR, 1))
	}
	return sockoptResult(unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVERR, 1))
}
