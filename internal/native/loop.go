// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// RunMode selects how [Loop.Run] blocks.
type RunMode int

const (
	// RunDefault runs until there are no more active and referenced handles
	// or requests.
	RunDefault RunMode = iota
	// RunOnce polls for I/O once, blocking if there are no pending callbacks.
	RunOnce
	// RunNoWait polls for I/O once without blocking.
	RunNoWait
)

// Loop is a single threaded event loop. The zero value must be initialized
// with [Loop.Init] before use.
type Loop struct {
	// Data is the opaque user slot.
	Data any

	// Logger receives diagnostics, may be nil.
	Logger *logiface.Logger[logiface.Event]

	// Limiter rate limits repeated diagnostics per category, may be nil.
	Limiter *catrate.Limiter

	poller poller

	wakeWatcher ioWatcher
	wakeMu      sync.RWMutex
	wakePending atomic.Uint32
	wakeRead    int
	wakeWrite   int
	wakeBuf     [64]byte

	postMu     sync.Mutex
	posted     []func()
	postClosed bool

	handleHead, handleTail *Handle
	closingHandles         []*Handle
	pendingQueue           []*ioWatcher

	prepareQueue []*Prepare
	checkQueue   []*Check
	idleQueue    []*Idle
	asyncs       []*Async

	timers       timerHeap
	timerCounter uint64

	fsEvents fsEventState

	time          uint64
	idleTime      uint64
	activeHandles int
	activeReqs    int

	stopFlag    bool
	metricsIdle bool
	initialized bool
	closed      bool
}

var defaultLoop struct {
	mu   sync.Mutex
	loop *Loop
}

// DefaultLoop returns the lazily initialized process wide loop, or nil if it
// could not be initialized. It is not safe for concurrent use.
func DefaultLoop() *Loop {
	defaultLoop.mu.Lock()
	defer defaultLoop.mu.Unlock()
	if defaultLoop.loop == nil {
		l := new(Loop)
		if l.Init() != 0 {
			return nil
		}
		defaultLoop.loop = l
	}
	return defaultLoop.loop
}

// Init initializes l. It must not be called on a loop in use.
func (l *Loop) Init() int {
	data, logger, limiter := l.Data, l.Logger, l.Limiter
	*l = Loop{Data: data, Logger: logger, Limiter: limiter, wakeRead: -1, wakeWrite: -1}

	if err := l.poller.init(); err != nil {
		return Translate(err)
	}

	r, w, err := createWakeFd()
	if err != nil {
		_ = l.poller.close()
		return Translate(err)
	}
	l.wakeRead, l.wakeWrite = r, w

	l.wakeWatcher.init(l.wakeRead, l.drainWakeUp)
	if code := l.ioStart(&l.wakeWatcher, pollIn); code != 0 {
		l.closeFDs()
		return code
	}

	l.fsEvents.init()
	l.initialized = true
	l.UpdateTime()
	return 0
}

// ConfigureMetricsIdleTime enables the collection of the time spent idle in the kernel's
// event provider, see [Loop.MetricsIdleTime].
func (l *Loop) ConfigureMetricsIdleTime() int {
	if !l.initialized {
		return EINVAL
	}
	l.metricsIdle = true
	return 0
}

// MetricsIdleTime returns nanoseconds spent blocked in poll, only accumulated
// once [Loop.ConfigureMetricsIdleTime] was called.
func (l *Loop) MetricsIdleTime() uint64 { return l.idleTime }

// Close releases loop resources. It fails with EBUSY while requests are in
// flight or any non internal handle has not finished closing.
func (l *Loop) Close() int {
	if !l.initialized || l.closed {
		return EINVAL
	}
	if l.activeReqs > 0 {
		return EBUSY
	}
	for h := l.handleHead; h != nil; h = h.qnext {
		if !h.isInternal() {
			return EBUSY
		}
	}

	l.fsEvents.close(l)
	l.ioClose(&l.wakeWatcher)

	l.postMu.Lock()
	l.postClosed = true
	l.posted = nil
	l.postMu.Unlock()

	l.closeFDs()
	l.closed = true

	defaultLoop.mu.Lock()
	if defaultLoop.loop == l {
		defaultLoop.loop = nil
	}
	defaultLoop.mu.Unlock()

	if l.Logger != nil {
		l.Logger.Debug().Log("native: loop closed")
	}
	return 0
}

// closeFDs closes file descriptors.
func (l *Loop) closeFDs() {
	_ = l.poller.close()
	l.wakeMu.Lock()
	defer l.wakeMu.Unlock()
	if l.wakeRead >= 0 {
		_ = closeFD(l.wakeRead)
	}
	if l.wakeWrite >= 0 && l.wakeWrite != l.wakeRead {
		_ = closeFD(l.wakeWrite)
	}
	l.wakeRead, l.wakeWrite = -1, -1
}

// Alive reports whether the loop has referenced active handles, active
// requests, or handles waiting for their close callback.
func (l *Loop) Alive() bool {
	return l.activeHandles > 0 || l.activeReqs > 0 || len(l.closingHandles) > 0
}

func (l *Loop) aliveCount() int {
	return l.activeHandles + l.activeReqs + len(l.closingHandles)
}

// Stop makes Run return at the end of the current iteration.
func (l *Loop) Stop() { l.stopFlag = true }

// Now returns the cached loop time in milliseconds.
func (l *Loop) Now() uint64 { return l.time }

// UpdateTime refreshes the cached loop time.
func (l *Loop) UpdateTime() { l.time = Hrtime() / uint64(time.Millisecond) }

// BackendTimeout returns the poll timeout in milliseconds the next iteration
// would use, -1 for no timeout.
func (l *Loop) BackendTimeout() int {
	if l.stopFlag || !l.Alive() {
		return 0
	}
	if len(l.pendingQueue) > 0 || len(l.idleQueue) > 0 || len(l.closingHandles) > 0 {
		return 0
	}
	return l.nextTimeout()
}

// Walk calls fn for every open handle, excluding internal ones.
func (l *Loop) Walk(fn func(h *Handle)) {
	var handles []*Handle
	for h := l.handleHead; h != nil; h = h.qnext {
		if !h.isInternal() {
			handles = append(handles, h)
		}
	}
	for _, h := range handles {
		fn(h)
	}
}

// Run drives the loop. It returns a positive value if the loop is still
// alive, zero if it is not, and a negative error code if polling failed.
func (l *Loop) Run(mode RunMode) int {
	if !l.initialized || l.closed {
		return EINVAL
	}

	alive := l.Alive()
	if !alive {
		l.UpdateTime()
	}

	for alive && !l.stopFlag {
		l.UpdateTime()
		l.runTimers()

		ranPending := l.runPending()
		l.runIdle()
		l.runPrepare()

		timeout := 0
		if (mode == RunOnce && !ranPending) || mode == RunDefault {
			timeout = l.BackendTimeout()
		}
		if code := l.ioPoll(timeout); code != 0 {
			return code
		}

		l.runCheck()
		l.runClosingHandles()

		if mode == RunOnce {
			l.UpdateTime()
			l.runTimers()
		}

		alive = l.Alive()
		if mode == RunOnce || mode == RunNoWait {
			break
		}
	}

	l.stopFlag = false
	return l.aliveCount()
}

func (l *Loop) ioPoll(timeout int) int {
	var start uint64
	if l.metricsIdle && timeout != 0 {
		start = Hrtime()
	}
	_, err := l.poller.wait(timeout, l.dispatchIO)
	if start != 0 {
		l.idleTime += Hrtime() - start
	}
	if err != nil {
		code := Translate(err)
		if l.Logger != nil {
			l.Logger.Crit().Err(err).Int("timeout", timeout).Log("native: poll failed")
		}
		return code
	}
	return 0
}

func (l *Loop) runPending() bool {
	if len(l.pendingQueue) == 0 {
		return false
	}
	pending := l.pendingQueue
	l.pendingQueue = nil
	for _, w := range pending {
		if !w.fed {
			continue
		}
		w.fed = false
		if w.cb != nil {
			w.cb(pollOut)
		}
	}
	return true
}

func (l *Loop) runClosingHandles() {
	closing := l.closingHandles
	l.closingHandles = nil
	for _, h := range closing {
		l.finishClose(h)
	}
}

func (l *Loop) nextTimeout() int {
	if len(l.timers) == 0 {
		return -1
	}
	due := l.timers[0].timeout
	if due <= l.time {
		return 0
	}
	diff := due - l.time
	if diff > math.MaxInt32 {
		diff = math.MaxInt32
	}
	return int(diff)
}

var hrtimeEpoch = time.Now()

// Hrtime returns a monotonic timestamp in nanoseconds, relative to an
// arbitrary point in the past.
func Hrtime() uint64 {
	return uint64(time.Since(hrtimeEpoch)) + uint64(time.Second)
}

// allow consults the loop's limiter, for diagnostics that could repeat at
// the rate of I/O events.
func (l *Loop) allow(category string) bool {
	_, ok := l.Limiter.Allow(category)
	return ok
}
