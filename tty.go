// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
	"github.com/mattn/go-isatty"
)

// TTYMode is the line discipline of a [TTY].
type TTYMode int

const (
	TTYModeNormal = TTYMode(native.TTYModeNormal)
	TTYModeRaw    = TTYMode(native.TTYModeRaw)
	TTYModeIO     = TTYMode(native.TTYModeIO)
)

// VtermState reports whether the terminal understands virtual terminal
// sequences.
type VtermState int

const (
	VtermStateSupported   = VtermState(native.VtermStateSupported)
	VtermStateUnsupported = VtermState(native.VtermStateUnsupported)
)

// TTY is a terminal stream.
// The zero value is invalid.
type TTY struct {
	t *native.TTY
}

// NewTTY creates a terminal stream over fd. It fails with [EINVAL] if fd is
// not a terminal.
func (l *Loop) NewTTY(fd int, readable bool) (TTY, error) {
	n, err := l.live()
	if err != nil {
		return TTY{}, err
	}
	if fd < 0 || !isatty.IsTerminal(uintptr(fd)) {
		return TTY{}, EINVAL
	}
	t := new(native.TTY)
	if code := n.InitTTY(t, fd, readable); code != 0 {
		return TTY{}, errOf(code)
	}
	initHandle(&t.Handle, &streamData{})
	return TTY{t: t}, nil
}

// Handle upcasts h.
func (h TTY) Handle() Handle { return Handle{h: &h.t.Handle} }

// Stream upcasts h.
func (h TTY) Stream() Stream { return Stream{s: &h.t.Stream} }

// Close is shorthand for Handle().Close(cb).
func (h TTY) Close(cb CloseCb) { h.Handle().Close(cb) }

// SetMode switches the line discipline. The original mode is remembered for
// [ResetMode].
func (h TTY) SetMode(mode TTYMode) error {
	if _, err := liveAddl[*streamData](&h.t.Handle); err != nil {
		return err
	}
	return errOf(h.t.SetMode(native.TTYMode(mode)))
}

// GetWinsize returns the terminal size in columns and rows.
func (h TTY) GetWinsize() (width, height int, err error) {
	width, height, code := h.t.GetWinsize()
	if code != 0 {
		return 0, 0, errOf(code)
	}
	return width, height, nil
}

// ResetMode restores the mode of the terminal saved by the first
// [TTY.SetMode]. Safe to call from a signal handler goroutine.
func ResetMode() error { return errOf(native.ResetMode()) }

// SetVtermState overrides virtual terminal detection, a no-op here.
func SetVtermState(state VtermState) { native.SetVtermState(native.VtermState(state)) }

// GetVtermState returns the virtual terminal state, failing with [ENOTSUP]
// where it does not apply.
func GetVtermState() (VtermState, error) {
	state, code := native.GetVtermState()
	return VtermState(state), errOf(code)
}
