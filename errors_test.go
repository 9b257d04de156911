// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_nameAndMessage(t *testing.T) {
	for _, tc := range []struct {
		err  Error
		name string
		msg  string
	}{
		{EINVAL, "EINVAL", "invalid argument"},
		{EOF, "EOF", "end of file"},
		{ECANCELED, "ECANCELED", "operation canceled"},
		{EAI_NONAME, "EAI_NONAME", "unknown node or service"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.err.Name())
			assert.Equal(t, tc.msg, tc.err.Message())
			assert.Equal(t, tc.name+": "+tc.msg, tc.err.Error())
			assert.Equal(t, int(tc.err), tc.err.Code())
			assert.Negative(t, tc.err.Code())
		})
	}
}

func TestErrorFromCode(t *testing.T) {
	assert.NoError(t, ErrorFromCode(0))
	assert.NoError(t, ErrorFromCode(42))
	assert.Equal(t, ENOENT, ErrorFromCode(ENOENT.Code()))
	assert.Equal(t, UNKNOWN, ErrorFromCode(-987654))
}

func TestErrors_closedSet(t *testing.T) {
	all := Errors()
	assert.Contains(t, all, EOF)
	assert.Contains(t, all, UNKNOWN)
	assert.Contains(t, all, EFTYPE)
	assert.Contains(t, all, EREMOTEIO)
	seen := make(map[Error]bool, len(all))
	for _, e := range all {
		assert.False(t, seen[e], "duplicate %s", e.Name())
		seen[e] = true
		assert.NotEmpty(t, e.Name())
		assert.NotEmpty(t, e.Message())
	}
}

func TestSentinelErrors_matchEINVAL(t *testing.T) {
	for _, err := range []error{ErrHandleClosed, ErrLoopClosed, ErrNilCallback} {
		assert.ErrorIs(t, err, EINVAL)
		var e Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, EINVAL, e)
	}
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", ECONNRESET), ECONNRESET)
	assert.NotErrorIs(t, ErrHandleClosed, ErrLoopClosed)
}

func TestConversionError(t *testing.T) {
	l := newTestLoop(t)
	timer, err := l.NewTimer()
	require.NoError(t, err)

	_, err = timer.Handle().AsTCP()
	require.Error(t, err)
	var conv *ConversionError
	require.ErrorAs(t, err, &conv)
	assert.Equal(t, TimerHandle, conv.From)
	assert.Equal(t, TCPHandle, conv.To)
	assert.Equal(t, "uv: cannot convert timer to tcp", err.Error())

	assert.ErrorIs(t, err, &ConversionError{To: TCPHandle})
	assert.ErrorIs(t, err, &ConversionError{From: TimerHandle})
	assert.ErrorIs(t, err, &ConversionError{})
	assert.NotErrorIs(t, err, &ConversionError{To: UDPHandle})
	assert.False(t, errors.Is(err, EINVAL))

	back, err := timer.Handle().AsTimer()
	require.NoError(t, err)
	assert.Equal(t, timer, back)
}
