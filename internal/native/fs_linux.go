// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package native

import "golang.org/x/sys/unix"

func statFromSys(st *unix.Stat_t) Stat {
	return Stat{
		Dev:     uint64(st.Dev),
		Mode:    uint64(st.Mode),
		Nlink:   uint64(st.Nlink),
		UID:     uint64(st.Uid),
		GID:     uint64(st.Gid),
		Rdev:    uint64(st.Rdev),
		Ino:     uint64(st.Ino),
		Size:    uint64(st.Size),
		Blksize: uint64(st.Blksize),
		Blocks:  uint64(st.Blocks),
		Atim:    Timespec{Sec: int64(st.Atim.Sec), Nsec: int64(st.Atim.Nsec)},
		Mtim:    Timespec{Sec: int64(st.Mtim.Sec), Nsec: int64(st.Mtim.Nsec)},
		Ctim:    Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)},
		// No birth time without statx, report the change time like libuv's
		// fallback does.
		Birthtim: Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)},
	}
}

func statfsFromSys(st *unix.Statfs_t) *StatFs {
	return &StatFs{
		Type:   uint64(st.Type),
		Bsize:  uint64(st.Bsize),
		Blocks: st.Blocks,
		Bfree:  st.Bfree,
		Bavail: st.Bavail,
		Files:  st.Files,
		Ffree:  st.Ffree,
	}
}

func fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}

func sendfile(out, in int, offset int64, length int) (int, error) {
	off := offset
	var total int
	for total < length {
		n, err := unix.Sendfile(out, in, &off, length-total)
		if n > 0 {
			total += n
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
