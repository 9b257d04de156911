// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import "reflect"

// slotKind tags the state of a [slot].
type slotKind uint8

const (
	slotEmpty slotKind = iota
	slotFunc
)

// slot holds an optional user callback of type F. Go makes no distinction
// between plain functions and closures, both are stored as a func value.
type slot[F any] struct {
	fn   F
	kind slotKind
}

// newSlot wraps fn, a nil func yields an empty slot.
func newSlot[F any](fn F) slot[F] {
	v := reflect.ValueOf(&fn).Elem()
	if v.Kind() != reflect.Func || v.IsNil() {
		return slot[F]{}
	}
	return slot[F]{fn: fn, kind: slotFunc}
}

func (s *slot[F]) isEmpty() bool { return s == nil || s.kind == slotEmpty }

// get returns the callback, ok is false for an empty slot.
func (s *slot[F]) get() (fn F, ok bool) {
	if s.isEmpty() {
		return fn, false
	}
	return s.fn, true
}

// trampoline returns t if the slot holds a callback, and the zero value
// otherwise, so that the native layer skips the callback entirely.
func trampoline[F, T any](s *slot[F], t T) T {
	if s.isEmpty() {
		var zero T
		return zero
	}
	return t
}
