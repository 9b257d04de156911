// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuf(t *testing.T) {
	b, err := NewBuf(8)
	require.NoError(t, err)
	assert.True(t, b.IsAllocated())
	assert.Equal(t, 8, b.Len())
	assert.Equal(t, 8, b.Cap())
	assert.Equal(t, make([]byte, 8), b.Bytes())

	_, err = NewBuf(-1)
	assert.ErrorIs(t, err, EINVAL)
}

func TestBuf_AsCStr(t *testing.T) {
	for _, tc := range []struct {
		name string
		buf  Buf
		want string
	}{
		{"string", NewBufString("HELLO"), "HELLO\x00"},
		{"empty string", NewBufString(""), "\x00"},
		{"bytes without terminator", NewBufBytes([]byte("abc")), "abc\x00"},
		{"bytes with embedded NUL", NewBufBytes([]byte("ab\x00cd")), "ab\x00cd\x00"},
		{"string with embedded NUL", NewBufString("a\x00b"), "a\x00b\x00"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(tc.buf.AsCStr()))
		})
	}
}

func TestBuf_stringKeepsLength(t *testing.T) {
	b := NewBufString("HELLO")
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 6, b.Cap())
	assert.Equal(t, "HELLO", b.String())
}

func TestBuf_SetLen(t *testing.T) {
	b, err := NewBuf(4)
	require.NoError(t, err)
	copy(b.Bytes(), "wxyz")
	require.NoError(t, b.SetLen(2))
	assert.Equal(t, "wx", b.String())
	require.NoError(t, b.SetLen(4))
	assert.Equal(t, "wxyz", b.String())
	assert.ErrorIs(t, b.SetLen(5), EINVAL)
	assert.ErrorIs(t, b.SetLen(-1), EINVAL)
}

func TestBuf_Readonly(t *testing.T) {
	b := NewBufString("data")
	ro := b.Readonly()
	assert.Equal(t, "data", ro.String())
	assert.Equal(t, 4, ro.Len())

	// the view tracks the record, not a copy
	require.NoError(t, b.SetLen(2))
	assert.Equal(t, "da", ro.String())

	b.Dealloc()
	assert.False(t, b.IsAllocated())
	assert.Nil(t, b.Bytes())
	assert.Zero(t, ro.Len())
	b.Dealloc()

	var zero Buf
	assert.Zero(t, zero.Readonly().Len())
	assert.Equal(t, []byte{0}, zero.AsCStr())
}

func TestViewOf(t *testing.T) {
	b := NewBufString("abcdef")
	rec := b.record()
	assert.Equal(t, "abc", viewOf(&rec, 3).String())
	assert.Equal(t, "abcdef", viewOf(&rec, 100).String())
	assert.Zero(t, viewOf(&rec, 0).Len())
	assert.Zero(t, viewOf(nil, 3).Len())
}
