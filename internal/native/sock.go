// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"
)

func closeFD(fd int) error {
	return unix.Close(fd)
}

// closeOwned closes fd unless it is one of the stdio descriptors.
func closeOwned(fd int) {
	if fd > unix.Stderr {
		_ = unix.Close(fd)
	}
}

func sockaddrFamily(sa unix.Sockaddr) int {
	switch sa.(type) {
	case *unix.SockaddrInet4:
		return unix.AF_INET
	case *unix.SockaddrInet6:
		return unix.AF_INET6
	case *unix.SockaddrUnix:
		return unix.AF_UNIX
	}
	return unix.AF_UNSPEC
}

// sockaddrIP returns the address of an inet socket address.
func sockaddrIP(sa unix.Sockaddr) (netip.Addr, int, bool) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrFrom4(sa.Addr), sa.Port, true
	case *unix.SockaddrInet6:
		return netip.AddrFrom16(sa.Addr), sa.Port, true
	}
	return netip.Addr{}, 0, false
}

func socketFamily(fd int) int {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return unix.AF_UNSPEC
	}
	return sockaddrFamily(sa)
}

// disconnect dissolves the default peer of a datagram socket.
func disconnect(fd int) error {
	var sa unix.RawSockaddr
	sa.Family = unix.AF_UNSPEC
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 && errno != unix.EAFNOSUPPORT {
		return errno
	}
	return nil
}

func setCloexecNonblock(fd int) error {
	unix.CloseOnExec(fd)
	return unix.SetNonblock(fd, true)
}

func isSocket(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFSOCK
}
