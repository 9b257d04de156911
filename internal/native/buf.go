// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "unsafe"

// Buf is a {base, length} record describing a region of memory. The record
// does not own the memory it points at.
type Buf struct {
	Base *byte
	Len  int
}

// BufInit returns a record describing b.
func BufInit(b []byte) Buf {
	if len(b) == 0 {
		return Buf{}
	}
	return Buf{Base: unsafe.SliceData(b), Len: len(b)}
}

// Bytes returns the described region, or nil for an empty record.
func (b *Buf) Bytes() []byte {
	if b == nil || b.Base == nil || b.Len <= 0 {
		return nil
	}
	return unsafe.Slice(b.Base, b.Len)
}

func bufsLen(bufs []Buf) int {
	var n int
	for i := range bufs {
		n += bufs[i].Len
	}
	return n
}

// advanceBufs consumes n bytes from the front of bufs, returning the
// remaining records.
func advanceBufs(bufs []Buf, n int) []Buf {
	for n > 0 && len(bufs) > 0 {
		if n < bufs[0].Len {
			bufs[0].Base = (*byte)(unsafe.Add(unsafe.Pointer(bufs[0].Base), n))
			bufs[0].Len -= n
			return bufs
		}
		n -= bufs[0].Len
		bufs = bufs[1:]
	}
	for len(bufs) > 0 && bufs[0].Len == 0 {
		bufs = bufs[1:]
	}
	return bufs
}

func bufsToSlices(bufs []Buf) [][]byte {
	out := make([][]byte, 0, len(bufs))
	for i := range bufs {
		if b := bufs[i].Bytes(); len(b) != 0 {
			out = append(out, b)
		}
	}
	return out
}
