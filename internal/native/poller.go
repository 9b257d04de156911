// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "errors"

// Maximum file descriptor we support with direct indexing.
const maxFDs = 1024

// maxFDLimit is the maximum fd value we support for dynamic growth.
const maxFDLimit = 100000000

type ioEvents uint32

const (
	pollIn ioEvents = 1 << iota
	pollOut
	pollPri
	pollRdhup
	pollErr
	pollHup
)

var errFDOutOfRange = errors.New("native: fd out of range (max 100000000)")

// ioWatcher ties a file descriptor to the callback that services it.
// Watchers are only touched from the loop goroutine.
type ioWatcher struct {
	cb         func(events ioEvents)
	fd         int
	pevents    ioEvents
	registered ioEvents
	fed        bool
}

func (w *ioWatcher) init(fd int, cb func(events ioEvents)) {
	*w = ioWatcher{fd: fd, cb: cb}
}

func (w *ioWatcher) active(events ioEvents) bool {
	return w.pevents&events != 0
}

func (p *pollerTable) lookup(fd int) *ioWatcher {
	if fd < 0 || fd >= len(p.watchers) {
		return nil
	}
	return p.watchers[fd]
}

func (p *pollerTable) set(fd int, w *ioWatcher) error {
	if fd < 0 || fd >= maxFDLimit {
		return errFDOutOfRange
	}
	if fd >= len(p.watchers) {
		// Grow in chunks to minimize allocations
		newSize := fd*2 + 1
		if newSize > maxFDLimit {
			newSize = maxFDLimit + 1
		}
		grown := make([]*ioWatcher, newSize)
		copy(grown, p.watchers)
		p.watchers = grown
	}
	p.watchers[fd] = w
	return nil
}

func (p *pollerTable) clear(fd int) {
	if fd >= 0 && fd < len(p.watchers) {
		p.watchers[fd] = nil
	}
}

// pollerTable is the fd indexed watcher table shared by the platform pollers.
type pollerTable struct {
	watchers []*ioWatcher
}

func (l *Loop) ioStart(w *ioWatcher, events ioEvents) int {
	if w.fd < 0 {
		return EBADF
	}
	w.pevents |= events
	return l.ioSync(w)
}

func (l *Loop) ioStop(w *ioWatcher, events ioEvents) {
	if w.fd < 0 {
		return
	}
	w.pevents &^= events
	_ = l.ioSync(w)
}

func (l *Loop) ioSync(w *ioWatcher) int {
	if w.pevents == w.registered {
		return 0
	}
	if w.pevents != 0 {
		if cur := l.poller.lookup(w.fd); cur != nil && cur != w {
			w.pevents = 0
			return EEXIST
		}
	}
	if err := l.poller.update(w); err != nil {
		w.pevents = w.registered
		return Translate(err)
	}
	if w.pevents == 0 {
		l.poller.clear(w.fd)
	} else if err := l.poller.set(w.fd, w); err != nil {
		return EINVAL
	}
	return 0
}

// ioClose removes every registration of w and drops any events for its fd
// that were already harvested by the current poll.
func (l *Loop) ioClose(w *ioWatcher) {
	if w.fd < 0 {
		return
	}
	w.pevents = 0
	_ = l.ioSync(w)
	if l.poller.lookup(w.fd) == w {
		l.poller.clear(w.fd)
	}
	l.poller.invalidate(w.fd)
	w.fed = false
}

// ioFeed schedules w's callback for the pending phase, as if it became
// writable.
func (l *Loop) ioFeed(w *ioWatcher) {
	if w.fed {
		return
	}
	w.fed = true
	l.pendingQueue = append(l.pendingQueue, w)
}

func (l *Loop) ioCheckFD(fd int) int {
	if err := l.poller.check(fd); err != nil {
		return Translate(err)
	}
	return 0
}

func (l *Loop) dispatchIO(fd int, events ioEvents) {
	w := l.poller.lookup(fd)
	if w == nil || w.cb == nil {
		return
	}
	events &= w.pevents | pollErr | pollHup
	if events == 0 {
		return
	}
	w.cb(events)
}
