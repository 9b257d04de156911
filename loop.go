// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-uv/internal/native"
	"github.com/joeycumines/logiface"
)

// RunMode selects how [Loop.Run] blocks.
type RunMode int

const (
	// RunDefault runs until no referenced active handles or requests remain.
	RunDefault = RunMode(native.RunDefault)
	// RunOnce blocks for at least one completion, then returns.
	RunOnce = RunMode(native.RunOnce)
	// RunNoWait polls for completions without blocking.
	RunNoWait = RunMode(native.RunNoWait)
)

// String returns the name of the mode.
func (m RunMode) String() string {
	switch m {
	case RunDefault:
		return "default"
	case RunOnce:
		return "once"
	case RunNoWait:
		return "nowait"
	default:
		return "unknown"
	}
}

// Loop is an event loop. It is not safe for concurrent use, with the
// exception of [Async.Send] and [Req.Cancel] on objects bound to it.
type Loop struct {
	l       *native.Loop
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
	panics  atomic.Uint64
	deleted bool
}

var defaultLoop struct {
	mu   sync.Mutex
	loop *Loop
}

// NewLoop creates an independent loop.
func NewLoop(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	limiter, err := newLimiter(cfg.logRates)
	if err != nil {
		return nil, err
	}

	n := &native.Loop{Logger: cfg.logger, Limiter: limiter}
	if code := n.Init(); code != 0 {
		return nil, errOf(code)
	}
	l := &Loop{l: n, logger: cfg.logger, limiter: limiter}
	n.Data = l

	if cfg.metricsIdle {
		if code := n.ConfigureMetricsIdleTime(); code != 0 {
			_ = n.Close()
			return nil, errOf(code)
		}
	}

	if l.logger != nil {
		l.logger.Debug().
			Int("threadpool_size", native.ThreadpoolSize()).
			Log("uv: loop created")
	}
	return l, nil
}

// DefaultLoop returns the process wide loop, creating it on first use or
// after it was closed. It is not safe for concurrent use.
func DefaultLoop() (*Loop, error) {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	if defaultLoop.loop != nil && !defaultLoop.loop.deleted {
		return defaultLoop.loop, nil
	}
	n := native.DefaultLoop()
	if n == nil {
		return nil, ENOMEM
	}
	l := &Loop{l: n, limiter: n.Limiter, logger: n.Logger}
	n.Data = l
	defaultLoop.loop = l
	return l, nil
}

// native returns the underlying loop, nil once closed.
func (l *Loop) native() *native.Loop {
	if l == nil || l.deleted {
		return nil
	}
	return l.l
}

// loopOf recovers the wrapper of a native loop.
func loopOf(n *native.Loop) *Loop {
	l, _ := n.Data.(*Loop)
	return l
}

// Run drives the loop in the given mode. It returns the number of alive
// handles and requests, zero meaning the loop has no more work.
func (l *Loop) Run(mode RunMode) (int, error) {
	n := l.native()
	if n == nil {
		return 0, ErrLoopClosed
	}
	switch mode {
	case RunDefault, RunOnce, RunNoWait:
	default:
		return 0, EINVAL
	}
	return result(n.Run(native.RunMode(mode)))
}

// Stop makes [Loop.Run] return at the end of the current iteration.
func (l *Loop) Stop() {
	if n := l.native(); n != nil {
		n.Stop()
	}
}

// Close releases the loop's resources. It fails with [EBUSY] while any
// handle is open or any request is pending.
func (l *Loop) Close() error {
	n := l.native()
	if n == nil {
		return ErrLoopClosed
	}
	if code := n.Close(); code != 0 {
		if code == native.EBUSY && l.logger != nil {
			var open int
			n.Walk(func(*native.Handle) { open++ })
			l.logger.Debug().Int("open_handles", open).Log("uv: loop close refused")
		}
		return errOf(code)
	}
	l.deleted = true
	return nil
}

// Delete closes every open handle, runs the loop until all close callbacks
// and pending requests have completed, then closes the loop. It is the
// disposal path for loops whose owner no longer tracks their handles.
func (l *Loop) Delete() error {
	n := l.native()
	if n == nil {
		return nil
	}
	l.Walk(func(h Handle) {
		if !h.IsClosing() {
			h.Close(nil)
		}
	})
	if _, err := l.Run(RunDefault); err != nil {
		return err
	}
	return l.Close()
}

// IsAlive reports whether the loop has referenced active handles, pending
// requests, or handles waiting for their close callback.
func (l *Loop) IsAlive() bool {
	n := l.native()
	return n != nil && n.Alive()
}

// Now returns the cached loop time in milliseconds, updated at the start of
// each iteration.
func (l *Loop) Now() uint64 {
	if n := l.native(); n != nil {
		return n.Now()
	}
	return 0
}

// UpdateTime refreshes the cached loop time.
func (l *Loop) UpdateTime() {
	if n := l.native(); n != nil {
		n.UpdateTime()
	}
}

// Hrtime returns a monotonic timestamp in nanoseconds.
func (l *Loop) Hrtime() uint64 { return native.Hrtime() }

// BackendTimeout returns the poll timeout in milliseconds, -1 meaning no
// timeout.
func (l *Loop) BackendTimeout() int {
	if n := l.native(); n != nil {
		return n.BackendTimeout()
	}
	return 0
}

// MetricsIdleTime returns the nanoseconds spent blocked waiting for events,
// which is only tracked when enabled with [WithMetricsIdleTime].
func (l *Loop) MetricsIdleTime() uint64 {
	if n := l.native(); n != nil {
		return n.MetricsIdleTime()
	}
	return 0
}

// Walk calls fn for every open handle.
func (l *Loop) Walk(fn func(h Handle)) {
	n := l.native()
	if n == nil || fn == nil {
		return
	}
	n.Walk(func(h *native.Handle) {
		l.safeCall("walk", func() { fn(Handle{h: h}) })
	})
}

// RecoveredPanics returns the number of callback panics recovered so far.
func (l *Loop) RecoveredPanics() uint64 { return l.panics.Load() }

// live returns the underlying loop, failing once the loop was closed.
func (l *Loop) live() (*native.Loop, error) {
	n := l.native()
	if n == nil {
		return nil, ErrLoopClosed
	}
	return n, nil
}
