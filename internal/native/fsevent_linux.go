// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package native

import (
	"bytes"
	"unsafe"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_ATTRIB | unix.IN_CREATE | unix.IN_MODIFY |
	unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVE_SELF |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// fsEventState multiplexes every fs event handle of a loop over one inotify
// descriptor.
type fsEventState struct {
	io      ioWatcher
	watches map[int][]*FsEvent
	buf     [4096]byte
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
	s.watches = nil
}

func (s *fsEventState) ensure(l *Loop) int {
	if s.io.fd != -1 {
		return 0
	}
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return Translate(err)
	}
	s.io.init(fd, func(ioEvents) { s.read() })
	if code := l.ioStart(&s.io, pollIn); code != 0 {
		_ = closeFD(fd)
		s.io.fd = -1
		return code
	}
	s.watches = make(map[int][]*FsEvent)
	return 0
}

func (s *fsEventState) add(l *Loop, h *FsEvent) int {
	if code := s.ensure(l); code != 0 {
		return code
	}
	wd, err := unix.InotifyAddWatch(s.io.fd, h.path, inotifyMask)
	if err != nil {
		return Translate(err)
	}
	h.watchID = wd
	s.watches[wd] = append(s.watches[wd], h)
	return 0
}

func (s *fsEventState) remove(h *FsEvent) {
	handles := removeWatcher(s.watches[h.watchID], h)
	if len(handles) == 0 {
		delete(s.watches, h.watchID)
		_, _ = unix.InotifyRmWatch(s.io.fd, uint32(h.watchID))
	} else {
		s.watches[h.watchID] = handles
	}
	h.watchID = -1
}

func (s *fsEventState) read() {
	for {
		n, err := unix.Read(s.io.fd, s.buf[:])
		if err != nil || n <= 0 {
			return
		}
		for off := 0; off+unix.SizeofInotifyEvent <= n; {
			ev := (*unix.InotifyEvent)(unsafe.Pointer(&s.buf[off]))
			nameStart := off + unix.SizeofInotifyEvent
			off = nameStart + int(ev.Len)

			var events int
			if ev.Mask&(unix.IN_ATTRIB|unix.IN_MODIFY) != 0 {
				events |= FsEventChange
			}
			if ev.Mask&^(unix.IN_ATTRIB|unix.IN_MODIFY) != 0 {
				events |= FsEventRename
			}

			var name string
			if ev.Len > 0 && off <= n {
				name = string(bytes.TrimRight(s.buf[nameStart:off], "\x00"))
			}

			for _, h := range append([]*FsEvent(nil), s.watches[int(ev.Wd)]...) {
				h.notify(name, events)
			}
		}
	}
}
