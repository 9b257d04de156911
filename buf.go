// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// bufRecord pairs the native {base, length} record with the allocation it
// was carved from, so that the length can be changed up to the capacity.
type bufRecord struct {
	native.Buf
	mem []byte
}

// Buf is an owning buffer. Copies of a Buf share the same record, and
// [Buf.Dealloc] releases the allocation for all of them. The zero value is
// an empty, deallocated buffer.
type Buf struct {
	p *bufRecord
}

// ReadonlyBuf is a borrowed view of a buffer record. Views handed to read
// callbacks describe exactly the bytes that were read.
type ReadonlyBuf struct {
	rec *native.Buf
}

// NewBuf allocates a zeroed buffer of size bytes.
func NewBuf(size int) (Buf, error) {
	if size < 0 {
		return Buf{}, EINVAL
	}
	return newBuf(make([]byte, size), size), nil
}

// NewBufString allocates a buffer holding a copy of s. The allocation
// carries a trailing NUL beyond the buffer length, see [Buf.AsCStr].
func NewBufString(s string) Buf {
	mem := make([]byte, len(s)+1)
	copy(mem, s)
	return newBuf(mem, len(s))
}

// NewBufBytes adopts b as the buffer allocation, without copying. The caller
// must not modify b while I/O referencing the buffer is pending.
func NewBufBytes(b []byte) Buf {
	return newBuf(b[:cap(b)], len(b))
}

func newBuf(mem []byte, n int) Buf {
	p := &bufRecord{mem: mem}
	p.Buf = native.BufInit(mem[:n])
	return Buf{p: p}
}

// Dealloc releases the allocation. Subsequent calls are no-ops and the
// buffer reads as empty.
func (b Buf) Dealloc() {
	if b.p == nil {
		return
	}
	b.p.Buf = native.Buf{}
	b.p.mem = nil
}

// IsAllocated reports whether the buffer has an allocation.
func (b Buf) IsAllocated() bool { return b.p != nil && b.p.mem != nil }

// Bytes returns the described bytes, aliasing the allocation.
func (b Buf) Bytes() []byte {
	if b.p == nil {
		return nil
	}
	return b.p.Buf.Bytes()
}

// Len returns the buffer length.
func (b Buf) Len() int {
	if b.p == nil {
		return 0
	}
	return b.p.Len
}

// Cap returns the size of the allocation.
func (b Buf) Cap() int {
	if b.p == nil {
		return 0
	}
	return len(b.p.mem)
}

// SetLen changes the buffer length, which must not exceed [Buf.Cap].
func (b Buf) SetLen(n int) error {
	if b.p == nil || n < 0 || n > len(b.p.mem) {
		return EINVAL
	}
	b.p.Buf = native.BufInit(b.p.mem[:n])
	return nil
}

// String returns a copy of the described bytes as a string.
func (b Buf) String() string { return string(b.Bytes()) }

// AsCStr returns the described bytes followed by a NUL. Embedded NULs are
// kept. Buffers created by [NewBufString] are returned without copying.
func (b Buf) AsCStr() []byte {
	data := b.Bytes()
	if b.p != nil && len(b.p.mem) > len(data) && b.p.mem[len(data)] == 0 {
		return b.p.mem[:len(data)+1]
	}
	out := make([]byte, len(data)+1)
	copy(out, data)
	return out
}

// Readonly returns a view sharing the same record.
func (b Buf) Readonly() ReadonlyBuf {
	if b.p == nil {
		return ReadonlyBuf{}
	}
	return ReadonlyBuf{rec: &b.p.Buf}
}

func (b Buf) record() native.Buf {
	if b.p == nil {
		return native.Buf{}
	}
	return b.p.Buf
}

// Bytes returns the described bytes, aliasing the underlying memory.
func (b ReadonlyBuf) Bytes() []byte {
	if b.rec == nil {
		return nil
	}
	return b.rec.Bytes()
}

// Len returns the view length.
func (b ReadonlyBuf) Len() int {
	if b.rec == nil {
		return 0
	}
	return b.rec.Len
}

// String returns a copy of the described bytes as a string.
func (b ReadonlyBuf) String() string { return string(b.Bytes()) }

func (b ReadonlyBuf) record() native.Buf {
	if b.rec == nil {
		return native.Buf{}
	}
	return *b.rec
}

// viewOf returns a view of the first n bytes of rec, empty for n <= 0.
func viewOf(rec *native.Buf, n int) ReadonlyBuf {
	if rec == nil || n <= 0 {
		return ReadonlyBuf{}
	}
	if n > rec.Len {
		n = rec.Len
	}
	return ReadonlyBuf{rec: &native.Buf{Base: rec.Base, Len: n}}
}

// records builds the scatter list owned by a write family request.
func records(bufs []ReadonlyBuf) []native.Buf {
	out := make([]native.Buf, len(bufs))
	for i, b := range bufs {
		out[i] = b.record()
	}
	return out
}

// bufRecords is records for owned buffers, as read targets.
func bufRecords(bufs []Buf) []native.Buf {
	out := make([]native.Buf, len(bufs))
	for i, b := range bufs {
		out[i] = b.record()
	}
	return out
}
