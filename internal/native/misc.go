// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// GuessHandle returns the handle kind best suited to fd.
func GuessHandle(fd int) HandleType {
	if fd < 0 {
		return UnknownHandle
	}
	if isatty.IsTerminal(uintptr(fd)) {
		return TTYHandle
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return UnknownHandle
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG, unix.S_IFCHR:
		return FileHandle
	case unix.S_IFIFO:
		return NamedPipeHandle
	case unix.S_IFSOCK:
	default:
		return UnknownHandle
	}

	typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return UnknownHandle
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return UnknownHandle
	}

	switch typ {
	case unix.SOCK_DGRAM:
		switch sa.(type) {
		case *unix.SockaddrInet4, *unix.SockaddrInet6:
			return UDPHandle
		}
	case unix.SOCK_STREAM:
		switch sa.(type) {
		case *unix.SockaddrInet4, *unix.SockaddrInet6:
			return TCPHandle
		case *unix.SockaddrUnix:
			return NamedPipeHandle
		}
	}
	return UnknownHandle
}
