// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var defaultLogRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// NewJSONLogger returns a logger writing one JSON object per line to w,
// suitable for [WithLogger]. Events below level are discarded.
func NewJSONLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// newLimiter converts the panic catrate raises for invalid rates into an
// error.
func newLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter, err = nil, fmt.Errorf("uv: invalid log rate limits: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// allow reports whether a diagnostic in category may be logged now.
func (l *Loop) allow(category string) bool {
	if l.limiter == nil {
		return true
	}
	_, ok := l.limiter.Allow(category)
	return ok
}

// safeCall runs a user callback, recovering and logging any panic so that
// the loop's bookkeeping stays consistent. what names the callback kind.
func (l *Loop) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil && l != nil {
			l.panics.Add(1)
			if l.logger != nil && l.allow("panic:"+what) {
				l.logger.Err().
					Str("callback", what).
					Any("panic", r).
					Log("uv: callback panicked")
			}
		}
	}()
	fn()
}
