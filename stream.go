// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

type (
	// AllocCb supplies the buffer for the next read, of at least
	// suggestedSize bytes ideally. Returning an unallocated Buf fails the
	// read with [ENOBUFS].
	AllocCb func(h Handle, suggestedSize int) Buf

	// ReadCb receives the result of a read. buf views the nread bytes read.
	// nread 0 with a nil err means there was nothing to read. err is [EOF]
	// once the peer closed its write side, after which the stream should be
	// closed.
	ReadCb func(s Stream, nread int, buf ReadonlyBuf, err error)

	// ConnectionCb runs on a listening stream for each incoming connection,
	// which must be taken with [Stream.Accept].
	ConnectionCb func(server Stream, err error)

	// WriteCb, ConnectCb and ShutdownCb receive the outcome of a request.
	// When nil no completion runs, and the request's side data is left to
	// the garbage collector rather than released on completion.
	WriteCb    func(req WriteReq, err error)
	ConnectCb  func(req ConnectReq, err error)
	ShutdownCb func(req ShutdownReq, err error)
)

// streamData is the side data of stream handles, and of UDP handles which
// share the alloc callback and carry a [udpData] in addl.
type streamData struct {
	allocCb      slot[AllocCb]
	connectionCb slot[ConnectionCb]
	readCb       slot[ReadCb]
	addl         streamAddl
}

// streamAddl sub classifies [streamData], nil for plain streams.
type streamAddl interface {
	streamKind() HandleType
}

type (
	writeData    struct{ cb slot[WriteCb] }
	connectData  struct{ cb slot[ConnectCb] }
	shutdownData struct{ cb slot[ShutdownCb] }
)

// Stream is the duplex channel shared by [TCP], [Pipe] and [TTY]. The zero
// value behaves as a closed stream.
type Stream struct {
	s *native.Stream
}

// Handle upcasts s.
func (s Stream) Handle() Handle {
	if s.s == nil {
		return Handle{}
	}
	return Handle{h: &s.s.Handle}
}

// Stream returns s, for symmetry with the concrete kinds.
func (s Stream) Stream() Stream { return s }

// Close is shorthand for Handle().Close(cb).
func (s Stream) Close(cb CloseCb) { s.Handle().Close(cb) }

// AsTCP converts s to a [TCP].
func (s Stream) AsTCP() (TCP, error) { return s.Handle().AsTCP() }

// AsPipe converts s to a [Pipe].
func (s Stream) AsPipe() (Pipe, error) { return s.Handle().AsPipe() }

// AsTTY converts s to a [TTY].
func (s Stream) AsTTY() (TTY, error) { return s.Handle().AsTTY() }

func defaultAlloc(_ Handle, suggestedSize int) Buf {
	b, _ := NewBuf(suggestedSize)
	return b
}

func allocTrampoline(h *native.Handle, suggestedSize int, buf *native.Buf) {
	d, ok := addlOf[*streamData](h)
	if !ok {
		return
	}
	alloc, ok := d.allocCb.get()
	if !ok {
		alloc = defaultAlloc
	}
	var b Buf
	loopOf(h.Loop()).safeCall("alloc", func() { b = alloc(Handle{h: h}, suggestedSize) })
	*buf = b.record()
}

func readTrampoline(s *native.Stream, nread int, buf *native.Buf) {
	d, ok := addlOf[*streamData](&s.Handle)
	if !ok {
		return
	}
	cb, ok := d.readCb.get()
	if !ok {
		return
	}
	var err error
	if nread < 0 {
		err, nread = errOf(nread), 0
	}
	view := viewOf(buf, nread)
	loopOf(s.Loop()).safeCall("read", func() { cb(Stream{s: s}, nread, view, err) })
}

func connectionTrampoline(server *native.Stream, status int) {
	d, ok := addlOf[*streamData](&server.Handle)
	if !ok {
		return
	}
	if cb, ok := d.connectionCb.get(); ok {
		loopOf(server.Loop()).safeCall("connection", func() { cb(Stream{s: server}, errOf(status)) })
	}
}

func writeTrampoline(req *native.WriteReq, status int) {
	completeReq(&req.Req, "write", func(d *writeData) {
		if cb, ok := d.cb.get(); ok {
			cb(WriteReq{r: req}, errOf(status))
		}
	})
}

func connectTrampoline(req *native.ConnectReq, status int) {
	completeReq(&req.Req, "connect", func(d *connectData) {
		if cb, ok := d.cb.get(); ok {
			cb(ConnectReq{r: req}, errOf(status))
		}
	})
}

func shutdownTrampoline(req *native.ShutdownReq, status int) {
	completeReq(&req.Req, "shutdown", func(d *shutdownData) {
		if cb, ok := d.cb.get(); ok {
			cb(ShutdownReq{r: req}, errOf(status))
		}
	})
}

func (s Stream) data() (*streamData, error) {
	if s.s == nil {
		return nil, ErrHandleClosed
	}
	return liveAddl[*streamData](&s.s.Handle)
}

// Listen starts listening for incoming connections on a bound TCP or pipe
// stream.
func (s Stream) Listen(backlog int, cb ConnectionCb) error {
	d, err := s.data()
	if err != nil {
		return err
	}
	connSlot := newSlot(cb)
	if connSlot.isEmpty() {
		return ErrNilCallback
	}
	d.connectionCb = connSlot
	return errOf(s.s.Listen(backlog, connectionTrampoline))
}

// Accept moves the connection announced by the connection callback into
// client. It succeeds once per connection callback, later calls fail with
// [EAGAIN].
func (s Stream) Accept(client Stream) error {
	if _, err := s.data(); err != nil {
		return err
	}
	if _, err := client.data(); err != nil {
		return err
	}
	return errOf(s.s.Accept(client.s))
}

// ReadStart starts reading. alloc runs before every read, and may be nil
// to allocate a fresh buffer of the suggested size each time.
func (s Stream) ReadStart(alloc AllocCb, read ReadCb) error {
	d, err := s.data()
	if err != nil {
		return err
	}
	readSlot := newSlot(read)
	if readSlot.isEmpty() {
		return ErrNilCallback
	}
	d.allocCb, d.readCb = newSlot(alloc), readSlot
	return errOf(s.s.ReadStart(allocTrampoline, readTrampoline))
}

// ReadStop stops reading. Idempotent, including on a stopped stream.
func (s Stream) ReadStop() error {
	if s.s == nil {
		return ErrHandleClosed
	}
	return errOf(s.s.ReadStop())
}

// Write queues a scatter write of bufs. Writes complete in the order they
// were issued. The bytes described by bufs must stay valid until cb runs,
// the request only owns the list of records.
func (s Stream) Write(bufs []ReadonlyBuf, cb WriteCb) (WriteReq, error) {
	return s.write(bufs, nil, cb)
}

// Write2 is [Stream.Write] that also transmits the descriptor of send over
// an IPC pipe. send must be a TCP or pipe stream.
func (s Stream) Write2(send Stream, bufs []ReadonlyBuf, cb WriteCb) (WriteReq, error) {
	if send.s == nil {
		return WriteReq{}, EINVAL
	}
	switch send.Handle().Type() {
	case TCPHandle, NamedPipeHandle:
	default:
		return WriteReq{}, EINVAL
	}
	return s.write(bufs, send.s, cb)
}

func (s Stream) write(bufs []ReadonlyBuf, send *native.Stream, cb WriteCb) (WriteReq, error) {
	if _, err := s.data(); err != nil {
		return WriteReq{}, err
	}
	req := new(native.WriteReq)
	d := &writeData{cb: newSlot(cb)}
	initReq(&req.Req, d)
	if code := s.s.Write2(req, records(bufs), send, trampoline(&d.cb, writeTrampoline)); code != 0 {
		req.Data = nil
		return WriteReq{}, errOf(code)
	}
	return WriteReq{r: req}, nil
}

// TryWrite writes as much of bufs as possible without queueing, returning
// the number of bytes written. It fails with [EAGAIN] when nothing could be
// written.
func (s Stream) TryWrite(bufs []ReadonlyBuf) (int, error) {
	if _, err := s.data(); err != nil {
		return 0, err
	}
	return result(s.s.TryWrite(records(bufs)))
}

// Shutdown half closes the write side once all queued writes completed.
func (s Stream) Shutdown(cb ShutdownCb) (ShutdownReq, error) {
	if _, err := s.data(); err != nil {
		return ShutdownReq{}, err
	}
	req := new(native.ShutdownReq)
	d := &shutdownData{cb: newSlot(cb)}
	initReq(&req.Req, d)
	if code := s.s.Shutdown(req, trampoline(&d.cb, shutdownTrampoline)); code != 0 {
		req.Data = nil
		return ShutdownReq{}, errOf(code)
	}
	return ShutdownReq{r: req}, nil
}

// IsReadable reports whether the stream can be read from.
func (s Stream) IsReadable() bool { return s.s != nil && s.s.IsReadable() }

// IsWritable reports whether the stream can be written to.
func (s Stream) IsWritable() bool { return s.s != nil && s.s.IsWritable() }

// SetBlocking toggles blocking mode, in which writes complete
// synchronously.
func (s Stream) SetBlocking(blocking bool) error {
	if _, err := s.data(); err != nil {
		return err
	}
	return errOf(s.s.SetBlocking(blocking))
}

// WriteQueueSize returns the number of bytes queued for writing.
func (s Stream) WriteQueueSize() int {
	if s.s == nil {
		return 0
	}
	return s.s.WriteQueueSize()
}

// connect issues a connect request through fn, which is the kind specific
// native verb.
func connect(cb ConnectCb, fn func(req *native.ConnectReq, cb native.ConnectCb) int) (ConnectReq, error) {
	req := new(native.ConnectReq)
	d := &connectData{cb: newSlot(cb)}
	initReq(&req.Req, d)
	if code := fn(req, trampoline(&d.cb, connectTrampoline)); code != 0 {
		req.Data = nil
		return ConnectReq{}, errOf(code)
	}
	return ConnectReq{r: req}, nil
}

// WriteReq is a queued stream write.
type WriteReq struct {
	r *native.WriteReq
}

// Req upcasts r.
func (r WriteReq) Req() Req { return Req{r: &r.r.Req} }

// Handle returns the stream the write was issued on.
func (r WriteReq) Handle() Stream { return Stream{s: r.r.Handle()} }

// SendHandle returns the stream transmitted by [Stream.Write2], ok is false
// for plain writes.
func (r WriteReq) SendHandle() (Stream, bool) {
	s := r.r.SendHandle()
	return Stream{s: s}, s != nil
}

// Bufs returns views of the buffer records owned by the request, empty
// once completed.
func (r WriteReq) Bufs() []ReadonlyBuf {
	recs := r.r.Bufs()
	out := make([]ReadonlyBuf, len(recs))
	for i := range recs {
		out[i] = ReadonlyBuf{rec: &recs[i]}
	}
	return out
}

// ConnectReq is an outgoing TCP or pipe connection.
type ConnectReq struct {
	r *native.ConnectReq
}

// Req upcasts r.
func (r ConnectReq) Req() Req { return Req{r: &r.r.Req} }

// Handle returns the connecting stream.
func (r ConnectReq) Handle() Stream { return Stream{s: r.r.Handle()} }

// ShutdownReq is a pending half close.
type ShutdownReq struct {
	r *native.ShutdownReq
}

// Req upcasts r.
func (r ShutdownReq) Req() Req { return Req{r: &r.r.Req} }

// Handle returns the stream being shut down.
func (r ShutdownReq) Handle() Stream { return Stream{s: r.r.Handle()} }
