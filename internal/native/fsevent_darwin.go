// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

import "golang.org/x/sys/unix"

const vnodeNotes = unix.NOTE_ATTRIB | unix.NOTE_WRITE | unix.NOTE_RENAME |
	unix.NOTE_DELETE | unix.NOTE_EXTEND | unix.NOTE_REVOKE

// fsEventState watches vnodes on a dedicated kqueue, which is itself polled
// for readability by the loop.
type fsEventState struct {
	io      ioWatcher
	watches map[int]*FsEvent
	events  [64]unix.Kevent_t
}

func (s *fsEventState) init() {
	s.io.init(-1, nil)
	s.watches = nil
}

func (s *fsEventState) close(l *Loop) {
	if s.io.fd == -1 {
		return
	}
	l.ioClose(&s.io)
	_ = closeFD(s.io.fd)
	s.io.fd = -1
	for fd := range s.watches {
		_ = closeFD(fd)
	}
	s.watches = nil
}

func (s *fsEventState) ensure(l *Loop) int {
	if s.io.fd != -1 {
		return 0
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return Translate(err)
	}
	unix.CloseOnExec(kq)
	s.io.init(kq, func(ioEvents) { s.read() })
	if code := l.ioStart(&s.io, pollIn); code != 0 {
		_ = closeFD(kq)
		s.io.fd = -1
		return code
	}
	s.watches = make(map[int]*FsEvent)
	return 0
}

func (s *fsEventState) add(l *Loop, h *FsEvent) int {
	if code := s.ensure(l); code != 0 {
		return code
	}
	fd, err := unix.Open(h.path, unix.O_EVTONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return Translate(err)
	}
	change := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: vnodeNotes,
	}
	if _, err := unix.Kevent(s.io.fd, []unix.Kevent_t{change}, nil, nil); err != nil {
		_ = closeFD(fd)
		return Translate(err)
	}
	h.watchID = fd
	s.watches[fd] = h
	return 0
}

func (s *fsEventState) remove(h *FsEvent) {
	delete(s.watches, h.watchID)
	_ = closeFD(h.watchID)
	h.watchID = -1
}

func (s *fsEventState) read() {
	n, err := unix.Kevent(s.io.fd, nil, s.events[:], &unix.Timespec{})
	if err != nil {
		return
	}
	for i := 0; i < n; i++ {
		ev := &s.events[i]
		h := s.watches[int(ev.Ident)]
		if h == nil {
			continue
		}
		events := FsEventRename
		if ev.Fflags&(unix.NOTE_ATTRIB|unix.NOTE_EXTEND) != 0 {
			events = FsEventChange
		}
		h.notify("", events)
	}
}
