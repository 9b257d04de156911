// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

import "golang.org/x/sys/unix"

func statFromSys(st *unix.Stat_t) Stat {
	return Stat{
		Dev:      uint64(st.Dev),
		Mode:     uint64(st.Mode),
		Nlink:    uint64(st.Nlink),
		UID:      uint64(st.Uid),
		GID:      uint64(st.Gid),
		Rdev:     uint64(st.Rdev),
		Ino:      st.Ino,
		Size:     uint64(st.Size),
		Blksize:  uint64(st.Blksize),
		Blocks:   uint64(st.Blocks),
		Flags:    uint64(st.Flags),
		Gen:      uint64(st.Gen),
		Atim:     Timespec{Sec: st.Atim.Sec, Nsec: st.Atim.Nsec},
		Mtim:     Timespec{Sec: st.Mtim.Sec, Nsec: st.Mtim.Nsec},
		Ctim:     Timespec{Sec: st.Ctim.Sec, Nsec: st.Ctim.Nsec},
		Birthtim: Timespec{Sec: st.Btim.Sec, Nsec: st.Btim.Nsec},
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
	_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	if err != nil {
		return unix.Fsync(fd)
	}
	return nil
}

// sendfile is emulated, darwin only supports sendfile to sockets.
func sendfile(out, in int, offset int64, length int) (int, error) {
	buf := make([]byte, 64*1024)
	var total int
	for total < length {
		chunk := buf
		if rem := length - total; rem < len(chunk) {
			chunk = chunk[:rem]
		}
		n, err := unix.Pread(in, chunk, offset+int64(total))
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		for w := 0; w < n; {
			m, err := unix.Write(out, chunk[w:n])
			if err != nil {
				return total, err
			}
			w += m
			total += m
		}
	}
	return total, nil
}
