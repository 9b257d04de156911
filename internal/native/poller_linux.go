// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package native

import (
	"golang.org/x/sys/unix"
)

// poller manages readiness registration using epoll (Linux).
type poller struct {
	pollerTable
	eventBuf [256]unix.EpollEvent
	epfd     int
	nready   int
	cursor   int
}

func (p *poller) init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.watchers = make([]*ioWatcher, maxFDs)
	return nil
}

func (p *poller) close() error {
	if p.epfd > 0 {
		err := unix.Close(p.epfd)
		p.epfd = -1
		return err
	}
	return nil
}

func (p *poller) update(w *ioWatcher) error {
	if w.pevents == 0 {
		if w.registered == 0 {
			return nil
		}
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
		w.registered = 0
		if err != nil && err != unix.ENOENT && err != unix.EBADF {
			return err
		}
		return nil
	}

	ev := unix.EpollEvent{
		Events: eventsToEpoll(w.pevents),
		Fd:     int32(w.fd),
	}
	op := unix.EPOLL_CTL_MOD
	if w.registered == 0 {
		op = unix.EPOLL_CTL_ADD
	}
	err := unix.EpollCtl(p.epfd, op, w.fd, &ev)
	if err == unix.EEXIST && op == unix.EPOLL_CTL_ADD {
		err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, w.fd, &ev)
	}
	if err != nil {
		return err
	}
	w.registered = w.pevents
	return nil
}

// check reports whether fd can be watched at all, e.g. regular files can't.
func (p *poller) check(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		if err == unix.EEXIST {
			return nil
		}
		return err
	}
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

// wait polls for events and dispatches them inline. Returns the number of
// events harvested.
func (p *poller) wait(timeoutMs int, dispatch func(fd int, events ioEvents)) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	p.nready = n
	for p.cursor = 0; p.cursor < n; p.cursor++ {
		fd := int(p.eventBuf[p.cursor].Fd)
		if fd < 0 {
			continue
		}
		dispatch(fd, epollToEvents(p.eventBuf[p.cursor].Events))
	}
	p.nready, p.cursor = 0, 0

	return n, nil
}

// invalidate drops events for fd that have not been dispatched yet.
func (p *poller) invalidate(fd int) {
	for i := p.cursor + 1; i < p.nready; i++ {
		if int(p.eventBuf[i].Fd) == fd {
			p.eventBuf[i].Fd = -1
		}
	}
}

// eventsToEpoll converts ioEvents to epoll event flags.
func eventsToEpoll(events ioEvents) uint32 {
	var epollEvents uint32
	if events&pollIn != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&pollOut != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	if events&pollPri != 0 {
		epollEvents |= unix.EPOLLPRI
	}
	if events&pollRdhup != 0 {
		epollEvents |= unix.EPOLLRDHUP
	}
	return epollEvents
}

// epollToEvents converts epoll event flags to ioEvents.
func epollToEvents(epollEvents uint32) ioEvents {
	var events ioEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= pollIn
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= pollOut
	}
	if epollEvents&unix.EPOLLPRI != 0 {
		events |= pollPri
	}
	if epollEvents&unix.EPOLLRDHUP != 0 {
		events |= pollRdhup
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= pollErr
	}
	if epollEvents&unix.EPOLLHUP != 0 {
		events |= pollHup
	}
	return events
}
