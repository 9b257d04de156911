// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TTYMode selects the terminal line discipline.
type TTYMode int

const (
	TTYModeNormal TTYMode = iota
	TTYModeRaw
	TTYModeIO
)

// TTY is a terminal stream.
type TTY struct {
	Stream
	origTermios unix.Termios
	mode        TTYMode
	saved       bool
}

var ttyReset struct {
	mu      sync.Mutex
	fd      int
	termios unix.Termios
	saved   bool
}

// InitTTY initializes h for fd. For readable terminals the device is reopened
// so that switching it to non-blocking mode doesn't affect other processes
// sharing the descriptor.
func (l *Loop) InitTTY(h *TTY, fd int, readable bool) int {
	kind := GuessHandle(fd)
	if kind == FileHandle || kind == UnknownHandle {
		return EINVAL
	}

	var flags streamFlags
	skipNonblock := false
	if kind == TTYHandle {
		if nfd, ok := reopenTTY(fd); ok {
			fd = nfd
		} else if !readable {
			// Can't reopen, fall back to blocking writes.
			skipNonblock = true
		}
	}
	if !skipNonblock {
		if err := unix.SetNonblock(fd, true); err != nil {
			return Translate(err)
		}
	}

	l.streamInit(&h.Stream, TTYHandle, h)
	if skipNonblock {
		h.sflags |= streamBlockingWrites
	}
	if readable {
		flags |= streamReadable
	} else {
		flags |= streamWritable
	}
	h.open(fd, flags)
	h.mode = TTYModeNormal
	h.saved = false
	return 0
}

// SetMode switches the terminal mode. Switching back to normal restores the
// attributes in effect before the first mode change.
func (h *TTY) SetMode(mode TTYMode) int {
	if h.mode == mode {
		return 0
	}
	fd := h.io.fd
	if fd < 0 {
		return EBADF
	}

	if h.mode == TTYModeNormal && mode != TTYModeNormal {
		t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
		if err != nil {
			return Translate(err)
		}
		h.origTermios = *t
		h.saved = true

		ttyReset.mu.Lock()
		if !ttyReset.saved {
			ttyReset.fd = fd
			ttyReset.termios = *t
			ttyReset.saved = true
		}
		ttyReset.mu.Unlock()
	}

	switch mode {
	case TTYModeNormal:
		if h.saved {
			t := h.origTermios
			if err := unix.IoctlSetTermios(fd, ioctlSetTermiosDrain, &t); err != nil {
				return Translate(err)
			}
		}
	case TTYModeRaw:
		t := h.origTermios
		t.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
		t.Oflag |= unix.ONLCR
		t.Cflag |= unix.CS8
		t.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
		t.Cc[unix.VMIN] = 1
		t.Cc[unix.VTIME] = 0
		if err := unix.IoctlSetTermios(fd, ioctlSetTermiosDrain, &t); err != nil {
			return Translate(err)
		}
	case TTYModeIO:
		if _, err := term.MakeRaw(fd); err != nil {
			return Translate(err)
		}
	default:
		return EINVAL
	}

	h.mode = mode
	return 0
}

// GetWinsize returns the terminal's width and height.
func (h *TTY) GetWinsize() (width, height int, code int) {
	w, ht, err := term.GetSize(h.io.fd)
	if err != nil {
		return 0, 0, Translate(err)
	}
	return w, ht, 0
}

func (h *TTY) close() {
	// the descriptor may be reused once closed
	ttyReset.mu.Lock()
	if ttyReset.saved && ttyReset.fd == h.io.fd {
		ttyReset.saved = false
	}
	ttyReset.mu.Unlock()
	h.closeStream()
}

// ResetMode restores the attributes saved by the first mode change of any
// TTY handle. Safe to call from a signal handler goroutine.
func ResetMode() int {
	ttyReset.mu.Lock()
	defer ttyReset.mu.Unlock()
	if !ttyReset.saved {
		return 0
	}
	t := ttyReset.termios
	if err := unix.IoctlSetTermios(ttyReset.fd, ioctlSetTermios, &t); err != nil {
		return Translate(err)
	}
	return 0
}

// VtermState reports whether virtual terminal sequences are supported.
type VtermState int

const (
	VtermStateSupported VtermState = iota
	VtermStateUnsupported
)

// SetVtermState has no effect on this platform.
func SetVtermState(VtermState) {}

// GetVtermState always fails with ENOTSUP on this platform.
func GetVtermState() (VtermState, int) { return VtermStateUnsupported, ENOTSUP }
