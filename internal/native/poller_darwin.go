// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

import (
	"golang.org/x/sys/unix"
)

const readSide = pollIn | pollPri | pollRdhup

// poller manages readiness registration using kqueue (Darwin).
type poller struct {
	pollerTable
	eventBuf [256]unix.Kevent_t
	kq       int
	nready   int
	cursor   int
}

func (p *poller) init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.watchers = make([]*ioWatcher, maxFDs)
	return nil
}

func (p *poller) close() error {
	if p.kq > 0 {
		err := unix.Close(p.kq)
		p.kq = -1
		return err
	}
	return nil
}

func (p *poller) update(w *ioWatcher) error {
	var changes []unix.Kevent_t

	had, want := w.registered&readSide != 0, w.pevents&readSide != 0
	switch {
	case want && !had:
		changes = append(changes, kevent(w.fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE))
	case had && !want:
		changes = append(changes, kevent(w.fd, unix.EVFILT_READ, unix.EV_DELETE))
	}

	had, want = w.registered&pollOut != 0, w.pevents&pollOut != 0
	switch {
	case want && !had:
		changes = append(changes, kevent(w.fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE))
	case had && !want:
		changes = append(changes, kevent(w.fd, unix.EVFILT_WRITE, unix.EV_DELETE))
	}

	if len(changes) != 0 {
		if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
			if w.pevents != 0 || (err != unix.ENOENT && err != unix.EBADF) {
				return err
			}
		}
	}
	w.registered = w.pevents
	return nil
}

// check reports whether fd can be watched at all.
func (p *poller) check(fd int) error {
	add := []unix.Kevent_t{kevent(fd, unix.EVFILT_READ, unix.EV_ADD)}
	if _, err := unix.Kevent(p.kq, add, nil, nil); err != nil {
		return err
	}
	if p.lookup(fd) == nil {
		del := []unix.Kevent_t{kevent(fd, unix.EVFILT_READ, unix.EV_DELETE)}
		_, _ = unix.Kevent(p.kq, del, nil, nil)
	}
	return nil
}

// wait polls for events and dispatches them inline. Returns the number of
// events harvested.
func (p *poller) wait(timeoutMs int, dispatch func(fd int, events ioEvents)) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.nready = n
	for p.cursor = 0; p.cursor < n; p.cursor++ {
		fd := int(p.eventBuf[p.cursor].Ident)
		if fd < 0 {
			continue
		}
		dispatch(fd, keventToEvents(&p.eventBuf[p.cursor]))
	}
	p.nready, p.cursor = 0, 0

	return n, nil
}

// invalidate drops events for fd that have not been dispatched yet.
func (p *poller) invalidate(fd int) {
	for i := p.cursor + 1; i < p.nready; i++ {
		if int(p.eventBuf[i].Ident) == fd {
			p.eventBuf[i].Ident = ^uint64(0)
		}
	}
}

func kevent(fd int, filter int16, flags uint16) unix.Kevent_t {
	return unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
}

func keventToEvents(kev *unix.Kevent_t) ioEvents {
	var events ioEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= pollIn
		if kev.Flags&unix.EV_EOF != 0 {
			events |= pollRdhup
		}
	case unix.EVFILT_WRITE:
		events |= pollOut
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= pollErr
	}
	return events
}
