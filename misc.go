// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// GuessHandle returns the handle kind suited to fd: [TTYHandle],
// [NamedPipeHandle], [TCPHandle], [UDPHandle], [FileHandle] or
// [UnknownHandle].
func GuessHandle(fd int) HandleType { return HandleType(native.GuessHandle(fd)) }

// ThreadpoolSize returns the size of the process wide threadpool. It is read
// from UV_THREADPOOL_SIZE when work is first queued and fixed after that.
func ThreadpoolSize() int { return native.ThreadpoolSize() }
