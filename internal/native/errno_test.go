// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestErrName(t *testing.T) {
	assert.Equal(t, "EINVAL", ErrName(EINVAL))
	assert.Equal(t, "invalid argument", StrError(EINVAL))
	assert.Equal(t, "EOF", ErrName(EOF))
	assert.Equal(t, "end of file", StrError(EOF))
	assert.Equal(t, "ECONNREFUSED", ErrName(ECONNREFUSED))
	assert.Equal(t, "Unknown system error 12345", ErrName(12345))
}

func TestCodes(t *testing.T) {
	codes := Codes()
	assert.NotEmpty(t, codes)
	seen := make(map[int]bool, len(codes))
	for _, code := range codes {
		assert.Less(t, code, 0)
		assert.False(t, seen[code], "duplicate %d", code)
		seen[code] = true
		assert.True(t, Known(code))
	}
	assert.True(t, seen[UNKNOWN])
	assert.True(t, seen[ECHARSET])
	assert.True(t, seen[EAI_NONAME])
	assert.False(t, Known(0))
}

func TestTranslate(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, 0},
		{unix.ECONNREFUSED, ECONNREFUSED},
		{unix.EWOULDBLOCK, EAGAIN},
		{&os.PathError{Op: "open", Path: "x", Err: unix.ENOENT}, ENOENT},
		{fmt.Errorf("wrapped: %w", unix.EPIPE), EPIPE},
		{io.EOF, EOF},
		{fs.ErrNotExist, ENOENT},
		{context.Canceled, ECANCELED},
		{context.DeadlineExceeded, ETIMEDOUT},
		{errors.New("something else"), UNKNOWN},
	} {
		assert.Equal(t, tc.want, Translate(tc.err), "%v", tc.err)
	}
}
