// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"syscall"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

const (
	readSuggestedSize = 64 * 1024
	maxReadsPerEvent  = 32
	maxWritesPerEvent = 32
	maxPassedFds      = 64
)

const einprogress = -int(unix.EINPROGRESS)

type (
	// AllocCb supplies the buffer for the next read.
	AllocCb func(h *Handle, suggestedSize int, buf *Buf)
	// ReadCb receives a byte count, 0 for a read that would block, or a
	// negative status (EOF once the peer closed its write side).
	ReadCb       func(s *Stream, nread int, buf *Buf)
	ConnectionCb func(server *Stream, status int)
	WriteCb      func(req *WriteReq, status int)
	ConnectCb    func(req *ConnectReq, status int)
	ShutdownCb   func(req *ShutdownReq, status int)
)

type streamFlags uint32

const (
	streamReadable streamFlags = 1 << iota
	streamWritable
	streamReading
	streamReadEOF
	streamShut
	streamListening
	streamBlockingWrites
	streamBound
)

// Stream is the duplex channel shared by TCP, Pipe and TTY handles.
type Stream struct {
	Handle
	io             ioWatcher
	allocCb        AllocCb
	readCb         ReadCb
	connectionCb   ConnectionCb
	connectReq     *ConnectReq
	shutdownReq    *ShutdownReq
	writeQueue     *queue.Queue
	writeCompleted []*WriteReq
	queuedFds      []int
	writeQueueSize int
	delayedError   int
	acceptedFd     int
	sflags         streamFlags
	ipc            bool
	sock           bool
}

// WriteReq is a queued scatter write. It owns a copy of the buffer records
// but not the memory they describe.
type WriteReq struct {
	Req
	cb         WriteCb
	handle     *Stream
	sendHandle *Stream
	bufs       []Buf
	pending    []Buf
	status     int
	sentFd     bool
}

// Handle returns the stream the write was issued on.
func (r *WriteReq) Handle() *Stream { return r.handle }

// SendHandle returns the stream whose descriptor is transmitted, if any.
func (r *WriteReq) SendHandle() *Stream { return r.sendHandle }

// Bufs returns the buffer records owned by the request, nil once completed.
func (r *WriteReq) Bufs() []Buf { return r.bufs }

// ConnectReq tracks an outgoing connection.
type ConnectReq struct {
	Req
	cb     ConnectCb
	handle *Stream
}

// Handle returns the connecting stream.
func (r *ConnectReq) Handle() *Stream { return r.handle }

// ShutdownReq tracks a half close.
type ShutdownReq struct {
	Req
	cb     ShutdownCb
	handle *Stream
}

// Handle returns the stream being shut down.
func (r *ShutdownReq) Handle() *Stream { return r.handle }

func (l *Loop) streamInit(s *Stream, typ HandleType, outer any) {
	l.handleInit(&s.Handle, typ, outer)
	s.io.init(-1, s.ioCallback)
	s.allocCb, s.readCb, s.connectionCb = nil, nil, nil
	s.connectReq, s.shutdownReq = nil, nil
	s.writeQueue = queue.New()
	s.writeCompleted, s.queuedFds = nil, nil
	s.writeQueueSize, s.delayedError = 0, 0
	s.acceptedFd = -1
	s.sflags = 0
	s.ipc, s.sock = false, false
}

// open adopts fd, which must already be non-blocking.
func (s *Stream) open(fd int, flags streamFlags) int {
	if s.io.fd != -1 && s.io.fd != fd {
		return EBUSY
	}
	s.io.fd = fd
	s.sflags |= flags
	s.sock = isSocket(fd)
	if t, ok := s.outer.(*TCP); ok {
		t.applySockopts()
	}
	return 0
}

// Fd returns the descriptor, -1 if not open.
func (s *Stream) Fd() int { return s.io.fd }

// IsReadable reports whether the stream can be read from.
func (s *Stream) IsReadable() bool { return s.sflags&streamReadable != 0 }

// IsWritable reports whether the stream can be written to.
func (s *Stream) IsWritable() bool { return s.sflags&streamWritable != 0 }

// WriteQueueSize returns the number of bytes queued but not yet written.
func (s *Stream) WriteQueueSize() int { return s.writeQueueSize }

// SetBlocking toggles blocking mode for the descriptor. Writes are then
// completed synchronously.
func (s *Stream) SetBlocking(blocking bool) int {
	if s.io.fd < 0 {
		return EBADF
	}
	if err := unix.SetNonblock(s.io.fd, !blocking); err != nil {
		return Translate(err)
	}
	if blocking {
		s.sflags |= streamBlockingWrites
	} else {
		s.sflags &^= streamBlockingWrites
	}
	return 0
}

// Listen starts listening for connections on a bound TCP or pipe stream.
func (s *Stream) Listen(backlog int, cb ConnectionCb) int {
	if s.IsClosing() {
		return EINVAL
	}
	var code int
	switch o := s.outer.(type) {
	case *TCP:
		code = o.listen(backlog, cb)
	case *Pipe:
		code = o.listen(backlog, cb)
	default:
		code = ENOTSUP
	}
	if code == 0 {
		s.start()
	}
	return code
}

func (s *Stream) listenFD(backlog int, cb ConnectionCb) int {
	if err := unix.Listen(s.io.fd, backlog); err != nil {
		return Translate(err)
	}
	s.connectionCb = cb
	s.sflags |= streamListening
	s.io.cb = s.serverIO
	return s.loop.ioStart(&s.io, pollIn)
}

func (s *Stream) serverIO(ioEvents) {
	if s.acceptedFd != -1 {
		s.loop.ioStop(&s.io, pollIn)
		return
	}
	for s.io.fd >= 0 {
		fd, err := acceptFD(s.io.fd)
		if err != nil {
			switch err {
			case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
				if err == unix.EAGAIN {
					return
				}
				continue
			}
			if s.loop.allow("accept") {
				s.loop.Logger.Warning().
					Err(err).
					Int("fd", s.io.fd).
					Str("handle", s.typ.String()).
					Log("native: accept failed")
			}
			if s.connectionCb != nil {
				s.connectionCb(s, Translate(err))
			}
			return
		}

		s.acceptedFd = fd
		if s.connectionCb != nil {
			s.connectionCb(s, 0)
		}
		if s.acceptedFd != -1 {
			// User hasn't yet accepted the connection.
			if s.io.fd >= 0 {
				s.loop.ioStop(&s.io, pollIn)
			}
			return
		}
	}
}

// Accept moves the pending connection (or received descriptor, for IPC
// pipes) into client. It fails with EAGAIN when nothing is pending.
func (s *Stream) Accept(client *Stream) int {
	if s.acceptedFd == -1 {
		return EAGAIN
	}

	switch client.typ {
	case TCPHandle, NamedPipeHandle:
		if code := client.open(s.acceptedFd, streamReadable|streamWritable); code != 0 {
			_ = closeFD(s.acceptedFd)
			s.nextAccepted()
			return code
		}
	default:
		return EINVAL
	}
	client.sflags |= streamBound

	s.nextAccepted()
	return 0
}

func (s *Stream) nextAccepted() {
	if len(s.queuedFds) > 0 {
		s.acceptedFd = s.queuedFds[0]
		s.queuedFds = s.queuedFds[1:]
		return
	}
	s.acceptedFd = -1
	if s.sflags&streamListening != 0 && !s.IsClosing() {
		s.loop.ioStart(&s.io, pollIn)
	}
}

// ReadStart starts reading, alloc is called before every read.
func (s *Stream) ReadStart(alloc AllocCb, read ReadCb) int {
	if alloc == nil || read == nil || s.IsClosing() {
		return EINVAL
	}
	if s.sflags&streamReadable == 0 {
		return ENOTCONN
	}
	s.sflags |= streamReading
	s.allocCb, s.readCb = alloc, read
	if code := s.loop.ioStart(&s.io, pollIn); code != 0 {
		return code
	}
	s.start()
	return 0
}

// ReadStop stops reading. Idempotent.
func (s *Stream) ReadStop() int {
	if s.sflags&streamReading == 0 {
		return 0
	}
	s.sflags &^= streamReading
	s.loop.ioStop(&s.io, pollIn)
	s.stop()
	s.allocCb, s.readCb = nil, nil
	return 0
}

func (s *Stream) ioCallback(events ioEvents) {
	if s.connectReq != nil {
		s.connectDone()
		return
	}

	if events&(pollIn|pollErr|pollHup) != 0 {
		s.read()
	}

	if s.io.fd < 0 {
		return
	}

	if events&(pollOut|pollErr|pollHup) != 0 {
		s.write()
		s.writeCallbacks()
		if s.writeQueue.Length() == 0 {
			s.drain()
		}
	}
}

func (s *Stream) read() {
	for count := maxReadsPerEvent; count > 0; count-- {
		if s.sflags&streamReading == 0 || s.readCb == nil || s.io.fd < 0 {
			return
		}

		var buf Buf
		s.allocCb(&s.Handle, readSuggestedSize, &buf)
		if buf.Base == nil || buf.Len == 0 {
			s.readCb(s, ENOBUFS, &buf)
			return
		}

		var n int
		var err error
		if s.ipc {
			n, err = s.recvIPC(buf.Bytes())
		} else {
			n, err = unix.Read(s.io.fd, buf.Bytes())
		}

		if err != nil {
			switch err {
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				s.readCb(s, 0, &buf)
			default:
				s.readCb(s, Translate(err), &buf)
				if s.sflags&streamReading != 0 {
					s.sflags &^= streamReading
					s.loop.ioStop(&s.io, pollIn)
					s.stop()
				}
			}
			return
		}

		if n == 0 {
			s.eof(&buf)
			return
		}

		s.readCb(s, n, &buf)
		if n < buf.Len {
			// Didn't fill the buffer, there's nothing left to read.
			return
		}
	}
}

func (s *Stream) eof(buf *Buf) {
	s.sflags |= streamReadEOF
	s.sflags &^= streamReading
	s.loop.ioStop(&s.io, pollIn)
	s.stop()
	s.readCb(s, EOF, buf)
}

func (s *Stream) recvIPC(b []byte) (int, error) {
	oob := make([]byte, unix.CmsgSpace(4*maxPassedFds))
	n, oobn, _, _, err := unix.Recvmsg(s.io.fd, b, oob, recvmsgFlags)
	if err != nil {
		return 0, err
	}
	if oobn == 0 {
		return n, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return n, nil
	}
	for i := range msgs {
		fds, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			continue
		}
		for _, fd := range fds {
			_ = setCloexecNonblock(fd)
			if s.acceptedFd == -1 {
				s.acceptedFd = fd
			} else {
				s.queuedFds = append(s.queuedFds, fd)
			}
		}
	}
	return n, nil
}

// PendingCount returns the number of descriptors received and not yet
// accepted.
func (s *Stream) PendingCount() int {
	if s.acceptedFd == -1 {
		return 0
	}
	return 1 + len(s.queuedFds)
}

// PendingType returns the kind of the next descriptor to accept.
func (s *Stream) PendingType() HandleType {
	if s.acceptedFd == -1 {
		return UnknownHandle
	}
	return GuessHandle(s.acceptedFd)
}

// Write queues a scatter write. bufs must stay valid until cb runs.
func (s *Stream) Write(req *WriteReq, bufs []Buf, cb WriteCb) int {
	return s.Write2(req, bufs, nil, cb)
}

// Write2 is Write that also transmits sendHandle's descriptor over an IPC
// pipe.
func (s *Stream) Write2(req *WriteReq, bufs []Buf, sendHandle *Stream, cb WriteCb) int {
	if len(bufs) == 0 {
		return EINVAL
	}
	if s.io.fd < 0 {
		return EBADF
	}
	if s.sflags&streamWritable == 0 {
		return EPIPE
	}
	if sendHandle != nil {
		if !s.ipc {
			return EINVAL
		}
		if sendHandle.io.fd < 0 {
			return EBADF
		}
	}

	emptyQueue := s.writeQueueSize == 0 && s.writeQueue.Length() == 0

	s.loop.reqInit(&req.Req, WriteReqType, req)
	req.cb = cb
	req.handle = s
	req.sendHandle = sendHandle
	req.bufs = append([]Buf(nil), bufs...)
	req.pending = append([]Buf(nil), bufs...)
	req.status = 0
	req.sentFd = false
	req.register()

	s.writeQueueSize += bufsLen(bufs)
	s.writeQueue.Add(req)

	switch {
	case s.connectReq != nil:
		// Still connecting, do nothing.
	case emptyQueue:
		s.write()
	default:
		s.loop.ioStart(&s.io, pollOut)
	}
	return 0
}

// TryWrite writes as much as possible without queueing. It fails with
// EAGAIN if nothing could be written or writes are already queued.
func (s *Stream) TryWrite(bufs []Buf) int {
	if s.connectReq != nil || s.writeQueueSize != 0 || s.writeQueue.Length() != 0 {
		return EAGAIN
	}
	if s.io.fd < 0 {
		return EBADF
	}
	if s.sflags&streamWritable == 0 {
		return EPIPE
	}
	total := bufsLen(bufs)
	n, err := s.writeIov(bufsToSlices(bufs), nil)
	if err != nil && n == 0 {
		return Translate(err)
	}
	if n == 0 && total > 0 {
		return EAGAIN
	}
	return n
}

func (s *Stream) writeIov(iov [][]byte, oob []byte) (int, error) {
	if len(iov) == 0 && oob == nil {
		return 0, nil
	}
	if s.sock || oob != nil {
		n, err := unix.SendmsgBuffers(s.io.fd, iov, oob, nil, msgNoSignal)
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	var total int
	for _, b := range iov {
		n, err := unix.Write(s.io.fd, b)
		if n > 0 {
			total += n
		}
		if err != nil {
			if total > 0 && err == unix.EAGAIN {
				return total, nil
			}
			return total, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}

func (s *Stream) write() {
	for i := 0; i < maxWritesPerEvent; i++ {
		if s.writeQueue.Length() == 0 || s.io.fd < 0 {
			return
		}
		req := s.writeQueue.Peek().(*WriteReq)

		var oob []byte
		if req.sendHandle != nil && !req.sentFd {
			oob = unix.UnixRights(req.sendHandle.io.fd)
		}
		n, err := s.writeIov(bufsToSlices(req.pending), oob)
		if err == nil && oob != nil {
			req.sentFd = true
		}
		if n > 0 {
			s.writeQueueSize -= n
			req.pending = advanceBufs(req.pending, n)
		}

		if err != nil && err != unix.EAGAIN && err != unix.EINTR {
			req.status = Translate(err)
			s.writeQueue.Remove()
			s.writeQueueSize -= bufsLen(req.pending)
			s.finishWrite(req)
			s.loop.ioStop(&s.io, pollOut)
			if !s.io.active(pollIn) {
				s.stop()
			}
			return
		}

		if len(req.pending) == 0 && (req.sendHandle == nil || req.sentFd) {
			s.writeQueue.Remove()
			s.finishWrite(req)
			continue
		}

		if s.sflags&streamBlockingWrites != 0 {
			continue
		}
		s.loop.ioStart(&s.io, pollOut)
		return
	}

	if s.writeQueue.Length() != 0 {
		s.loop.ioStart(&s.io, pollOut)
	}
}

func (s *Stream) finishWrite(req *WriteReq) {
	s.writeCompleted = append(s.writeCompleted, req)
	s.loop.ioFeed(&s.io)
}

func (s *Stream) writeCallbacks() {
	if len(s.writeCompleted) == 0 {
		return
	}
	completed := s.writeCompleted
	s.writeCompleted = nil
	for _, req := range completed {
		req.unregister()
		req.bufs, req.pending = nil, nil
		if req.cb != nil {
			req.cb(req, req.status)
		}
	}
}

func (s *Stream) flushWriteQueue(status int) {
	for s.writeQueue.Length() != 0 {
		req := s.writeQueue.Remove().(*WriteReq)
		req.status = status
		s.writeCompleted = append(s.writeCompleted, req)
	}
	s.writeQueueSize = 0
}

func (s *Stream) drain() {
	s.loop.ioStop(&s.io, pollOut)

	req := s.shutdownReq
	if req == nil {
		return
	}
	s.shutdownReq = nil
	req.unregister()

	status := 0
	switch {
	case s.IsClosing():
		status = ECANCELED
	default:
		if err := unix.Shutdown(s.io.fd, unix.SHUT_WR); err != nil {
			status = Translate(err)
		} else {
			s.sflags |= streamShut
		}
	}
	if req.cb != nil {
		req.cb(req, status)
	}
}

// Shutdown half closes the write side once queued writes have drained.
func (s *Stream) Shutdown(req *ShutdownReq, cb ShutdownCb) int {
	if s.io.fd < 0 || s.sflags&streamWritable == 0 || s.sflags&streamShut != 0 ||
		s.shutdownReq != nil || s.IsClosing() {
		return ENOTCONN
	}

	s.loop.reqInit(&req.Req, ShutdownReqType, req)
	req.cb = cb
	req.handle = s
	req.register()

	s.shutdownReq = req
	s.sflags &^= streamWritable

	if s.writeQueue.Length() == 0 {
		s.loop.ioFeed(&s.io)
	} else {
		s.loop.ioStart(&s.io, pollOut)
	}
	return 0
}

// IsShutting reports whether a shutdown is pending or done.
func (s *Stream) IsShutting() bool {
	return s.shutdownReq != nil || s.sflags&streamShut != 0
}

func (s *Stream) connect(req *ConnectReq, cb ConnectCb, err error) int {
	if err != nil && err != unix.EINPROGRESS {
		if err != unix.ECONNREFUSED {
			return Translate(err)
		}
		s.delayedError = ECONNREFUSED
	}

	s.loop.reqInit(&req.Req, ConnectReqType, req)
	req.cb = cb
	req.handle = s
	req.register()
	s.connectReq = req

	s.loop.ioStart(&s.io, pollOut)
	if s.delayedError != 0 {
		s.loop.ioFeed(&s.io)
	}
	return 0
}

func (s *Stream) connectDone() {
	req := s.connectReq

	var status int
	if s.delayedError != 0 {
		status = s.delayedError
		s.delayedError = 0
	} else {
		v, err := unix.GetsockoptInt(s.io.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		switch {
		case err != nil:
			status = Translate(err)
		case v != 0:
			status = translateErrno(syscall.Errno(v))
		}
		if status == einprogress {
			return
		}
	}

	s.connectReq = nil
	req.unregister()

	if status < 0 || s.writeQueue.Length() == 0 {
		s.loop.ioStop(&s.io, pollOut)
	}

	if req.cb != nil {
		req.cb(req, status)
	}

	if s.io.fd < 0 {
		return
	}

	if status < 0 {
		s.flushWriteQueue(ECANCELED)
		s.writeCallbacks()
	}
}

func (s *Stream) closeStream() {
	s.sflags &^= streamReading | streamReadable | streamWritable
	s.allocCb, s.readCb = nil, nil
	s.loop.ioClose(&s.io)
	s.stop()

	if s.io.fd != -1 {
		closeOwned(s.io.fd)
		s.io.fd = -1
	}
	if s.acceptedFd != -1 {
		_ = closeFD(s.acceptedFd)
		s.acceptedFd = -1
	}
	for _, fd := range s.queuedFds {
		_ = closeFD(fd)
	}
	s.queuedFds = nil
}

// destroy fails every outstanding request with ECANCELED.
func (s *Stream) destroy() {
	if req := s.connectReq; req != nil {
		s.connectReq = nil
		req.unregister()
		if req.cb != nil {
			req.cb(req, ECANCELED)
		}
	}

	s.flushWriteQueue(ECANCELED)
	s.writeCallbacks()

	if req := s.shutdownReq; req != nil {
		s.shutdownReq = nil
		req.unregister()
		if req.cb != nil {
			req.cb(req, ECANCELED)
		}
	}
}
