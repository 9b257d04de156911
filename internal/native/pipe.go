// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"os"

	"golang.org/x/sys/unix"
)

// Pipe chmod modes.
const (
	Readable = 1
	Writable = 2
)

// Pipe is a unix domain socket stream, or any other descriptor opened with
// [Pipe.Open].
type Pipe struct {
	Stream
	pipeName string
}

// InitPipe initializes h. ipc enables passing handles over the pipe.
func (l *Loop) InitPipe(h *Pipe, ipc bool) int {
	l.streamInit(&h.Stream, NamedPipeHandle, h)
	h.ipc = ipc
	h.pipeName = ""
	return 0
}

// IPC reports whether the pipe was initialized for handle passing.
func (h *Pipe) IPC() bool { return h.ipc }

// Open adopts fd, deriving readability from its access mode.
func (h *Pipe) Open(fd int) int {
	if h.io.fd != -1 {
		return EBUSY
	}
	mode, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return Translate(err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return Translate(err)
	}
	var flags streamFlags
	switch mode & unix.O_ACCMODE {
	case unix.O_RDONLY:
		flags = streamReadable
	case unix.O_WRONLY:
		flags = streamWritable
	default:
		flags = streamReadable | streamWritable
	}
	return h.open(fd, flags)
}

// Bind binds to the filesystem path name.
func (h *Pipe) Bind(name string) int {
	if name == "" {
		return EINVAL
	}
	if h.pipeName != "" || h.sflags&streamBound != 0 {
		return EINVAL
	}
	if h.io.fd >= 0 {
		return EINVAL
	}
	fd, err := newSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return Translate(err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: name}); err != nil {
		_ = closeFD(fd)
		// Convert ENOENT to EACCES for compatibility with Windows.
		if err == unix.ENOENT {
			return EACCES
		}
		return Translate(err)
	}
	h.pipeName = name
	h.io.fd = fd
	h.sock = true
	h.sflags |= streamBound
	return 0
}

func (h *Pipe) listen(backlog int, cb ConnectionCb) int {
	if h.io.fd == -1 {
		return EINVAL
	}
	if h.ipc {
		return EINVAL
	}
	return h.listenFD(backlog, cb)
}

// Connect connects to the socket at name. Failures are reported through cb.
func (h *Pipe) Connect(req *ConnectReq, name string, cb ConnectCb) int {
	if h.connectReq != nil {
		return EALREADY
	}
	if h.IsClosing() {
		return EINVAL
	}

	newSock := h.io.fd == -1
	if newSock {
		fd, err := newSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		if err != nil {
			h.delayedError = Translate(err)
		} else {
			h.io.fd = fd
			h.sock = true
		}
	}

	if h.delayedError == 0 {
		var err error
		for {
			err = unix.Connect(h.io.fd, &unix.SockaddrUnix{Name: name})
			if err != unix.EINTR {
				break
			}
		}
		if err != nil && err != unix.EINPROGRESS {
			h.delayedError = Translate(err)
		} else {
			h.sflags |= streamReadable | streamWritable
		}
	}

	h.loop.reqInit(&req.Req, ConnectReqType, req)
	req.cb = cb
	req.handle = &h.Stream
	req.register()
	h.connectReq = req

	if h.delayedError == 0 {
		h.loop.ioStart(&h.io, pollOut)
	}
	if h.delayedError != 0 || h.io.fd == -1 {
		h.loop.ioFeed(&h.io)
	}
	h.start()
	return 0
}

// PendingInstances has no effect on this platform.
func (h *Pipe) PendingInstances(int) {}

// Getsockname returns the bound path.
func (h *Pipe) Getsockname() (string, int) {
	return pipeName(h.io.fd, unix.Getsockname)
}

// Getpeername returns the connected peer's path.
func (h *Pipe) Getpeername() (string, int) {
	return pipeName(h.io.fd, unix.Getpeername)
}

func pipeName(fd int, fn func(int) (unix.Sockaddr, error)) (string, int) {
	sa, code := getName(fd, fn)
	if code != 0 {
		return "", code
	}
	if sa, ok := sa.(*unix.SockaddrUnix); ok {
		return sa.Name, 0
	}
	return "", 0
}

// Chmod makes the bound socket readable and/or writable by everyone.
func (h *Pipe) Chmod(flags int) int {
	if h.io.fd < 0 {
		return EBADF
	}
	if flags != Readable && flags != Writable && flags != Readable|Writable {
		return EINVAL
	}
	name, code := h.Getsockname()
	if code != 0 {
		return code
	}
	if name == "" {
		return EINVAL
	}

	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return Translate(err)
	}
	desired := uint32(0)
	if flags&Readable != 0 {
		desired |= unix.S_IRUSR | unix.S_IRGRP | unix.S_IROTH
	}
	if flags&Writable != 0 {
		desired |= unix.S_IWUSR | unix.S_IWGRP | unix.S_IWOTH
	}
	mode := uint32(st.Mode)
	// Exit early if the pipe already has the desired permissions.
	if mode&desired == desired {
		return 0
	}
	mode |= desired
	if err := unix.Chmod(name, mode&0o7777); err != nil {
		return Translate(err)
	}
	return 0
}

func (h *Pipe) close() {
	if h.pipeName != "" {
		_ = os.Remove(h.pipeName)
		h.pipeName = ""
	}
	h.closeStream()
}
