// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"crypto/rand"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// FsType identifies the operation of an [FsReq].
type FsType int

const (
	FsUnknown FsType = iota - 1
	FsCustom
	FsOpen
	FsClose
	FsRead
	FsWrite
	FsSendfile
	FsStat
	FsLstat
	FsFstat
	FsFtruncate
	FsUtime
	FsFutime
	FsAccess
	FsChmod
	FsFchmod
	FsFsync
	FsFdatasync
	FsUnlink
	FsRmdir
	FsMkdir
	FsMkdtemp
	FsRename
	FsScandir
	FsLink
	FsSymlink
	FsReadlink
	FsChown
	FsFchown
	FsRealpath
	FsCopyfile
	FsLchown
	FsOpendir
	FsReaddir
	FsClosedir
	FsStatfs
	FsMkstemp
	FsLutime
)

// Flags for [Loop.FsCopyfile] and [Loop.FsSymlink].
const (
	CopyfileExcl         = 1
	CopyfileFiclone      = 2
	CopyfileFicloneForce = 4

	SymlinkDir      = 1
	SymlinkJunction = 2
)

// FsCb is invoked once an asynchronous fs request completes. Inspect
// [FsReq.Result] for the outcome.
type FsCb func(req *FsReq)

// Timespec is a seconds and nanoseconds pair.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Stat mirrors the portable subset of struct stat.
type Stat struct {
	Dev      uint64
	Mode     uint64
	Nlink    uint64
	UID      uint64
	GID      uint64
	Rdev     uint64
	Ino      uint64
	Size     uint64
	Blksize  uint64
	Blocks   uint64
	Flags    uint64
	Gen      uint64
	Atim     Timespec
	Mtim     Timespec
	Ctim     Timespec
	Birthtim Timespec
}

// StatFs mirrors struct statfs.
type StatFs struct {
	Type   uint64
	Bsize  uint64
	Blocks uint64
	Bfree  uint64
	Bavail uint64
	Files  uint64
	Ffree  uint64
}

// DirentType classifies a directory entry.
type DirentType int

const (
	DirentUnknown DirentType = iota
	DirentFile
	DirentDir
	DirentLink
	DirentFifo
	DirentSocket
	DirentChar
	DirentBlock
)

// Dirent is a directory entry.
type Dirent struct {
	Name string
	Type DirentType
}

// Dir is an open directory stream. Readdir fills at most len(Dirents)
// entries per call, the caller sizes the slice.
type Dir struct {
	Dirents []Dirent
	f       *os.File
}

// FsReq is a filesystem request.
type FsReq struct {
	Req
	cb FsCb
	// Result is the outcome, a negative error code or the operation
	// specific non negative value.
	Result int64
	// Path is the path argument, or the generated path for mkdtemp and
	// mkstemp.
	Path string
	// Ptr holds the operation specific output, see each operation.
	Ptr     any
	Statbuf Stat
	fsType  FsType
	dirents []Dirent
	next    int
	work    work
}

// FsType returns the operation.
func (r *FsReq) FsType() FsType { return r.fsType }

// Cleanup releases the output held by the request.
func (r *FsReq) Cleanup() {
	r.Ptr = nil
	r.dirents = nil
	r.next = 0
}

func (l *Loop) fsSubmit(req *FsReq, typ FsType, path string, cb FsCb, fn func(req *FsReq) int64) int {
	l.reqInit(&req.Req, FsReqType, req)
	req.cb = cb
	req.fsType = typ
	req.Path = path
	req.Result = 0
	req.Ptr = nil
	req.Statbuf = Stat{}
	req.dirents, req.next = nil, 0

	if cb == nil {
		req.Result = fn(req)
		return int(req.Result)
	}

	req.register()
	l.submitWork(&req.work, func() { req.Result = fn(req) }, func(status int) {
		req.unregister()
		if status == ECANCELED {
			req.Result = int64(ECANCELED)
		}
		req.cb(req)
	})
	return 0
}

func fsResult(err error) int64 {
	if err != nil {
		return int64(Translate(err))
	}
	return 0
}

// FsOpen opens path. Result is the descriptor.
func (l *Loop) FsOpen(req *FsReq, path string, flags int, mode uint32, cb FsCb) int {
	return l.fsSubmit(req, FsOpen, path, cb, func(req *FsReq) int64 {
		fd, err := unix.Open(req.Path, flags|unix.O_CLOEXEC, mode)
		if err != nil {
			return fsResult(err)
		}
		return int64(fd)
	})
}

// FsClose closes file.
func (l *Loop) FsClose(req *FsReq, file int, cb FsCb) int {
	return l.fsSubmit(req, FsClose, "", cb, func(*FsReq) int64 {
		return fsResult(unix.Close(file))
	})
}

// FsRead reads into bufs. A negative offset reads from the current
// position. Result is the byte count, 0 at end of file.
func (l *Loop) FsRead(req *FsReq, file int, bufs []Buf, offset int64, cb FsCb) int {
	if len(bufs) == 0 {
		return EINVAL
	}
	bufs = append([]Buf(nil), bufs...)
	return l.fsSubmit(req, FsRead, "", cb, func(*FsReq) int64 {
		var total int64
		for i := range bufs {
			b := bufs[i].Bytes()
			if len(b) == 0 {
				continue
			}
			var n int
			var err error
			if offset < 0 {
				n, err = unix.Read(file, b)
			} else {
				n, err = unix.Pread(file, b, offset+total)
			}
			if err != nil {
				if total > 0 {
					return total
				}
				return fsResult(err)
			}
			total += int64(n)
			if n < len(b) {
				break
			}
		}
		return total
	})
}

// FsWrite writes bufs. A negative offset writes at the current position.
// Result is the byte count.
func (l *Loop) FsWrite(req *FsReq, file int, bufs []Buf, offset int64, cb FsCb) int {
	if len(bufs) == 0 {
		return EINVAL
	}
	bufs = append([]Buf(nil), bufs...)
	return l.fsSubmit(req, FsWrite, "", cb, func(*FsReq) int64 {
		var total int64
		for i := range bufs {
			b := bufs[i].Bytes()
			for len(b) > 0 {
				var n int
				var err error
				if offset < 0 {
					n, err = unix.Write(file, b)
				} else {
					n, err = unix.Pwrite(file, b, offset+total)
				}
				if err != nil {
					if err == unix.EINTR {
						continue
					}
					if total > 0 {
						return total
					}
					return fsResult(err)
				}
				total += int64(n)
				b = b[n:]
			}
		}
		return total
	})
}

// FsUnlink removes a file.
func (l *Loop) FsUnlink(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsUnlink, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Unlink(req.Path))
	})
}

// FsMkdir creates a directory.
func (l *Loop) FsMkdir(req *FsReq, path string, mode uint32, cb FsCb) int {
	return l.fsSubmit(req, FsMkdir, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Mkdir(req.Path, mode))
	})
}

const tempSuffix = "XXXXXX"

func tempName(tpl string) (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b [len(tempSuffix)]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = chars[int(b[i])%len(chars)]
	}
	return strings.TrimSuffix(tpl, tempSuffix) + string(b[:]), nil
}

func createTemp(tpl string, create func(path string) (int64, error)) (string, int64) {
	if !strings.HasSuffix(tpl, tempSuffix) {
		return tpl, int64(EINVAL)
	}
	for attempt := 0; attempt < 100; attempt++ {
		path, err := tempName(tpl)
		if err != nil {
			return tpl, fsResult(err)
		}
		r, err := create(path)
		if err == unix.EEXIST {
			continue
		}
		if err != nil {
			return tpl, fsResult(err)
		}
		return path, r
	}
	return tpl, int64(EEXIST)
}

// FsMkdtemp creates a directory from tpl, which must end in XXXXXX. Path is
// updated to the created directory.
func (l *Loop) FsMkdtemp(req *FsReq, tpl string, cb FsCb) int {
	return l.fsSubmit(req, FsMkdtemp, tpl, cb, func(req *FsReq) int64 {
		var r int64
		req.Path, r = createTemp(req.Path, func(path string) (int64, error) {
			return 0, unix.Mkdir(path, 0o700)
		})
		return r
	})
}

// FsMkstemp creates and opens a file from tpl, which must end in XXXXXX.
// Result is the descriptor and Path the created file.
func (l *Loop) FsMkstemp(req *FsReq, tpl string, cb FsCb) int {
	return l.fsSubmit(req, FsMkstemp, tpl, cb, func(req *FsReq) int64 {
		var r int64
		req.Path, r = createTemp(req.Path, func(path string) (int64, error) {
			fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
			return int64(fd), err
		})
		return r
	})
}

// FsRmdir removes an empty directory.
func (l *Loop) FsRmdir(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsRmdir, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Rmdir(req.Path))
	})
}

// FsStat fills Statbuf for path.
func (l *Loop) FsStat(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsStat, path, cb, func(req *FsReq) int64 {
		var st unix.Stat_t
		if err := unix.Stat(req.Path, &st); err != nil {
			return fsResult(err)
		}
		req.Statbuf = statFromSys(&st)
		return 0
	})
}

// FsLstat is FsStat without following a final symlink.
func (l *Loop) FsLstat(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsLstat, path, cb, func(req *FsReq) int64 {
		var st unix.Stat_t
		if err := unix.Lstat(req.Path, &st); err != nil {
			return fsResult(err)
		}
		req.Statbuf = statFromSys(&st)
		return 0
	})
}

// FsFstat fills Statbuf for file.
func (l *Loop) FsFstat(req *FsReq, file int, cb FsCb) int {
	return l.fsSubmit(req, FsFstat, "", cb, func(req *FsReq) int64 {
		var st unix.Stat_t
		if err := unix.Fstat(file, &st); err != nil {
			return fsResult(err)
		}
		req.Statbuf = statFromSys(&st)
		return 0
	})
}

// FsStatfs sets Ptr to a *StatFs for the filesystem containing path.
func (l *Loop) FsStatfs(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsStatfs, path, cb, func(req *FsReq) int64 {
		var st unix.Statfs_t
		if err := unix.Statfs(req.Path, &st); err != nil {
			return fsResult(err)
		}
		req.Ptr = statfsFromSys(&st)
		return 0
	})
}

// FsRename renames path to newPath.
func (l *Loop) FsRename(req *FsReq, path, newPath string, cb FsCb) int {
	return l.fsSubmit(req, FsRename, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Rename(req.Path, newPath))
	})
}

// FsFsync flushes file to storage.
func (l *Loop) FsFsync(req *FsReq, file int, cb FsCb) int {
	return l.fsSubmit(req, FsFsync, "", cb, func(*FsReq) int64 {
		return fsResult(unix.Fsync(file))
	})
}

// FsFdatasync flushes file's data to storage.
func (l *Loop) FsFdatasync(req *FsReq, file int, cb FsCb) int {
	return l.fsSubmit(req, FsFdatasync, "", cb, func(*FsReq) int64 {
		return fsResult(fdatasync(file))
	})
}

// FsFtruncate truncates file to offset bytes.
func (l *Loop) FsFtruncate(req *FsReq, file int, offset int64, cb FsCb) int {
	return l.fsSubmit(req, FsFtruncate, "", cb, func(*FsReq) int64 {
		return fsResult(unix.Ftruncate(file, offset))
	})
}

// FsSendfile copies length bytes from in at inOffset to out. Result is the
// byte count.
func (l *Loop) FsSendfile(req *FsReq, out, in int, inOffset int64, length int, cb FsCb) int {
	return l.fsSubmit(req, FsSendfile, "", cb, func(*FsReq) int64 {
		n, err := sendfile(out, in, inOffset, length)
		if err != nil && n == 0 {
			return fsResult(err)
		}
		return int64(n)
	})
}

// FsAccess checks the caller's permissions for path.
func (l *Loop) FsAccess(req *FsReq, path string, mode uint32, cb FsCb) int {
	return l.fsSubmit(req, FsAccess, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Access(req.Path, mode))
	})
}

// FsChmod changes the mode of path.
func (l *Loop) FsChmod(req *FsReq, path string, mode uint32, cb FsCb) int {
	return l.fsSubmit(req, FsChmod, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Chmod(req.Path, mode))
	})
}

// FsFchmod changes the mode of file.
func (l *Loop) FsFchmod(req *FsReq, file int, mode uint32, cb FsCb) int {
	return l.fsSubmit(req, FsFchmod, "", cb, func(*FsReq) int64 {
		return fsResult(unix.Fchmod(file, mode))
	})
}

// FsChown changes the owner of path.
func (l *Loop) FsChown(req *FsReq, path string, uid, gid int, cb FsCb) int {
	return l.fsSubmit(req, FsChown, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Chown(req.Path, uid, gid))
	})
}

// FsFchown changes the owner of file.
func (l *Loop) FsFchown(req *FsReq, file int, uid, gid int, cb FsCb) int {
	return l.fsSubmit(req, FsFchown, "", cb, func(*FsReq) int64 {
		return fsResult(unix.Fchown(file, uid, gid))
	})
}

// FsLchown changes the owner of path without following a final symlink.
func (l *Loop) FsLchown(req *FsReq, path string, uid, gid int, cb FsCb) int {
	return l.fsSubmit(req, FsLchown, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Lchown(req.Path, uid, gid))
	})
}

// FsLink creates a hard link newPath to path.
func (l *Loop) FsLink(req *FsReq, path, newPath string, cb FsCb) int {
	return l.fsSubmit(req, FsLink, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Link(req.Path, newPath))
	})
}

// FsSymlink creates a symlink newPath pointing at path. The flags only
// matter on Windows.
func (l *Loop) FsSymlink(req *FsReq, path, newPath string, flags int, cb FsCb) int {
	if flags&^(SymlinkDir|SymlinkJunction) != 0 {
		return EINVAL
	}
	return l.fsSubmit(req, FsSymlink, path, cb, func(req *FsReq) int64 {
		return fsResult(unix.Symlink(req.Path, newPath))
	})
}

// FsReadlink sets Ptr to the link target string.
func (l *Loop) FsReadlink(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsReadlink, path, cb, func(req *FsReq) int64 {
		target, err := os.Readlink(req.Path)
		if err != nil {
			return fsResult(err)
		}
		req.Ptr = target
		return 0
	})
}

// FsRealpath sets Ptr to the canonical absolute path string.
func (l *Loop) FsRealpath(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsRealpath, path, cb, func(req *FsReq) int64 {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			return fsResult(err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return fsResult(err)
		}
		req.Ptr = resolved
		return 0
	})
}

// FsScandir lists path in name order, excluding "." and "..". Result is the
// entry count, iterate with [FsReq.ScandirNext].
func (l *Loop) FsScandir(req *FsReq, path string, flags int, cb FsCb) int {
	return l.fsSubmit(req, FsScandir, path, cb, func(req *FsReq) int64 {
		entries, err := os.ReadDir(req.Path)
		if err != nil {
			return fsResult(err)
		}
		req.dirents = make([]Dirent, len(entries))
		for i, e := range entries {
			req.dirents[i] = Dirent{Name: e.Name(), Type: direntType(e.Type())}
		}
		return int64(len(entries))
	})
}

// ScandirNext returns the next entry of a completed scandir request, or EOF
// once exhausted.
func (r *FsReq) ScandirNext() (Dirent, int) {
	if r.Result < 0 {
		return Dirent{}, int(r.Result)
	}
	if r.next >= len(r.dirents) {
		r.dirents, r.next = nil, 0
		return Dirent{}, EOF
	}
	d := r.dirents[r.next]
	r.next++
	return d, 0
}

func direntType(m fs.FileMode) DirentType {
	switch m.Type() {
	case 0:
		return DirentFile
	case fs.ModeDir:
		return DirentDir
	case fs.ModeSymlink:
		return DirentLink
	case fs.ModeNamedPipe:
		return DirentFifo
	case fs.ModeSocket:
		return DirentSocket
	case fs.ModeDevice | fs.ModeCharDevice:
		return DirentChar
	case fs.ModeDevice:
		return DirentBlock
	}
	return DirentUnknown
}

// FsOpendir opens a directory stream, setting Ptr to the *Dir.
func (l *Loop) FsOpendir(req *FsReq, path string, cb FsCb) int {
	return l.fsSubmit(req, FsOpendir, path, cb, func(req *FsReq) int64 {
		f, err := os.Open(req.Path)
		if err != nil {
			return fsResult(err)
		}
		if st, err := f.Stat(); err != nil || !st.IsDir() {
			_ = f.Close()
			if err != nil {
				return fsResult(err)
			}
			return int64(ENOTDIR)
		}
		req.Ptr = &Dir{f: f}
		return 0
	})
}

// FsReaddir fills dir.Dirents with up to len(dir.Dirents) entries. Result
// is the number filled, 0 at the end of the stream.
func (l *Loop) FsReaddir(req *FsReq, dir *Dir, cb FsCb) int {
	if dir == nil || dir.f == nil || len(dir.Dirents) == 0 {
		return EINVAL
	}
	return l.fsSubmit(req, FsReaddir, "", cb, func(req *FsReq) int64 {
		req.Ptr = dir
		entries, err := dir.f.ReadDir(len(dir.Dirents))
		if err != nil && err != io.EOF {
			return fsResult(err)
		}
		for i, e := range entries {
			dir.Dirents[i] = Dirent{Name: e.Name(), Type: direntType(e.Type())}
		}
		return int64(len(entries))
	})
}

// FsClosedir closes a directory stream.
func (l *Loop) FsClosedir(req *FsReq, dir *Dir, cb FsCb) int {
	if dir == nil || dir.f == nil {
		return EINVAL
	}
	return l.fsSubmit(req, FsClosedir, "", cb, func(req *FsReq) int64 {
		req.Ptr = dir
		err := dir.f.Close()
		dir.f = nil
		return fsResult(err)
	})
}

func timespecOf(t float64) unix.Timespec {
	return unix.NsecToTimespec(int64(t * float64(time.Second)))
}

// FsUtime sets access and modification times, in seconds since the epoch.
func (l *Loop) FsUtime(req *FsReq, path string, atime, mtime float64, cb FsCb) int {
	return l.fsSubmit(req, FsUtime, path, cb, func(req *FsReq) int64 {
		ts := []unix.Timespec{timespecOf(atime), timespecOf(mtime)}
		return fsResult(unix.UtimesNanoAt(unix.AT_FDCWD, req.Path, ts, 0))
	})
}

// FsLutime is FsUtime without following a final symlink.
func (l *Loop) FsLutime(req *FsReq, path string, atime, mtime float64, cb FsCb) int {
	return l.fsSubmit(req, FsLutime, path, cb, func(req *FsReq) int64 {
		ts := []unix.Timespec{timespecOf(atime), timespecOf(mtime)}
		return fsResult(unix.UtimesNanoAt(unix.AT_FDCWD, req.Path, ts, unix.AT_SYMLINK_NOFOLLOW))
	})
}

// FsFutime sets the times of file.
func (l *Loop) FsFutime(req *FsReq, file int, atime, mtime float64, cb FsCb) int {
	return l.fsSubmit(req, FsFutime, "", cb, func(*FsReq) int64 {
		tv := []unix.Timeval{
			unix.NsecToTimeval(int64(atime * float64(time.Second))),
			unix.NsecToTimeval(int64(mtime * float64(time.Second))),
		}
		return fsResult(unix.Futimes(file, tv))
	})
}

// FsCopyfile copies path to newPath, preserving the mode. The destination
// is removed if the copy fails part way.
func (l *Loop) FsCopyfile(req *FsReq, path, newPath string, flags int, cb FsCb) int {
	if flags&^(CopyfileExcl|CopyfileFiclone|CopyfileFicloneForce) != 0 {
		return EINVAL
	}
	return l.fsSubmit(req, FsCopyfile, path, cb, func(req *FsReq) int64 {
		if flags&CopyfileFicloneForce != 0 {
			return int64(ENOTSUP)
		}
		return fsResult(copyFile(req.Path, newPath, flags&CopyfileExcl != 0))
	})
}

func copyFile(src, dst string, excl bool) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return unix.EISDIR
	}

	flags := os.O_WRONLY | os.O_CREATE
	if excl {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if err = out.Truncate(0); err != nil {
		return err
	}
	if err = out.Chmod(st.Mode().Perm()); err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("native: copy %s: %w", src, err)
	}
	return nil
}
