// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"time"

	"github.com/joeycumines/go-uv/internal/native"
)

// File is an open file descriptor, as returned by [Loop.FsOpen].
type File int

// FsType identifies the operation of an [FsReq].
type FsType int

const (
	FsUnknown   = FsType(native.FsUnknown)
	FsCustom    = FsType(native.FsCustom)
	FsOpen      = FsType(native.FsOpen)
	FsClose     = FsType(native.FsClose)
	FsRead      = FsType(native.FsRead)
	FsWrite     = FsType(native.FsWrite)
	FsSendfile  = FsType(native.FsSendfile)
	FsStat      = FsType(native.FsStat)
	FsLstat     = FsType(native.FsLstat)
	FsFstat     = FsType(native.FsFstat)
	FsFtruncate = FsType(native.FsFtruncate)
	FsUtime     = FsType(native.FsUtime)
	FsFutime    = FsType(native.FsFutime)
	FsAccess    = FsType(native.FsAccess)
	FsChmod     = FsType(native.FsChmod)
	FsFchmod    = FsType(native.FsFchmod)
	FsFsync     = FsType(native.FsFsync)
	FsFdatasync = FsType(native.FsFdatasync)
	FsUnlink    = FsType(native.FsUnlink)
	FsRmdir     = FsType(native.FsRmdir)
	FsMkdir     = FsType(native.FsMkdir)
	FsMkdtemp   = FsType(native.FsMkdtemp)
	FsRename    = FsType(native.FsRename)
	FsScandir   = FsType(native.FsScandir)
	FsLink      = FsType(native.FsLink)
	FsSymlink   = FsType(native.FsSymlink)
	FsReadlink  = FsType(native.FsReadlink)
	FsChown     = FsType(native.FsChown)
	FsFchown    = FsType(native.FsFchown)
	FsRealpath  = FsType(native.FsRealpath)
	FsCopyfile  = FsType(native.FsCopyfile)
	FsLchown    = FsType(native.FsLchown)
	FsOpendir   = FsType(native.FsOpendir)
	FsReaddir   = FsType(native.FsReaddir)
	FsClosedir  = FsType(native.FsClosedir)
	FsStatfs    = FsType(native.FsStatfs)
	FsMkstemp   = FsType(native.FsMkstemp)
	FsLutime    = FsType(native.FsLutime)
)

var fsTypeNames = [...]string{
	"custom", "open", "close", "read", "write", "sendfile", "stat", "lstat",
	"fstat", "ftruncate", "utime", "futime", "access", "chmod", "fchmod",
	"fsync", "fdatasync", "unlink", "rmdir", "mkdir", "mkdtemp", "rename",
	"scandir", "link", "symlink", "readlink", "chown", "fchown", "realpath",
	"copyfile", "lchown", "opendir", "readdir", "closedir", "statfs",
	"mkstemp", "lutime",
}

func (t FsType) String() string {
	if t >= 0 && int(t) < len(fsTypeNames) {
		return fsTypeNames[t]
	}
	return "unknown"
}

// Flags for [Loop.FsCopyfile] and [Loop.FsSymlink].
const (
	CopyfileExcl         = native.CopyfileExcl
	CopyfileFiclone      = native.CopyfileFiclone
	CopyfileFicloneForce = native.CopyfileFicloneForce

	SymlinkDir      = native.SymlinkDir
	SymlinkJunction = native.SymlinkJunction
)

// Timespec is a point in time as seconds and nanoseconds since the epoch.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Time converts ts.
func (ts Timespec) Time() time.Time { return time.Unix(ts.Sec, ts.Nsec) }

// Stat is the portable subset of struct stat.
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

func statOf(st *native.Stat) Stat {
	if st == nil {
		return Stat{}
	}
	return Stat{
		Dev:      st.Dev,
		Mode:     st.Mode,
		Nlink:    st.Nlink,
		UID:      st.UID,
		GID:      st.GID,
		Rdev:     st.Rdev,
		Ino:      st.Ino,
		Size:     st.Size,
		Blksize:  st.Blksize,
		Blocks:   st.Blocks,
		Flags:    st.Flags,
		Gen:      st.Gen,
		Atim:     Timespec(st.Atim),
		Mtim:     Timespec(st.Mtim),
		Ctim:     Timespec(st.Ctim),
		Birthtim: Timespec(st.Birthtim),
	}
}

// StatFs describes a mounted filesystem.
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
	DirentUnknown = DirentType(native.DirentUnknown)
	DirentFile    = DirentType(native.DirentFile)
	DirentDir     = DirentType(native.DirentDir)
	DirentLink    = DirentType(native.DirentLink)
	DirentFifo    = DirentType(native.DirentFifo)
	DirentSocket  = DirentType(native.DirentSocket)
	DirentChar    = DirentType(native.DirentChar)
	DirentBlock   = DirentType(native.DirentBlock)
)

// Dirent is a directory entry.
type Dirent struct {
	Name string
	Type DirentType
}

func direntsOf(in []native.Dirent) []Dirent {
	out := make([]Dirent, len(in))
	for i, d := range in {
		out[i] = Dirent{Name: d.Name, Type: DirentType(d.Type)}
	}
	return out
}

// defaultDirEntries is the batch size of [Loop.FsReaddir] on a [Dir] that
// was never reserved.
const defaultDirEntries = 32

// Dir is an open directory stream, from [Loop.FsOpendir]. It owns the entry
// slice that each read fills, entries returned to the caller are copies.
type Dir struct {
	d *native.Dir
}

// Reserve sets the maximum number of entries returned per read.
func (d Dir) Reserve(n int) error {
	if d.d == nil || n <= 0 {
		return EINVAL
	}
	d.d.Dirents = make([]native.Dirent, n)
	return nil
}

func (d Dir) native() (*native.Dir, error) {
	if d.d == nil {
		return nil, EINVAL
	}
	if len(d.d.Dirents) == 0 {
		d.d.Dirents = make([]native.Dirent, defaultDirEntries)
	}
	return d.d, nil
}

// FsCb runs once an fs request completed. err is derived from
// [FsReq.Result], and the request's outputs are only valid during the
// callback.
type FsCb func(req FsReq, err error)

type fsData struct {
	cb slot[FsCb]
}

// FsReq is a filesystem request.
type FsReq struct {
	r *native.FsReq
}

// Req upcasts r.
func (r FsReq) Req() Req { return Req{r: &r.r.Req} }

// FsType returns the operation.
func (r FsReq) FsType() FsType { return FsType(r.r.FsType()) }

// Result is the outcome: a negative error code, or the operation specific
// value such as a descriptor or byte count.
func (r FsReq) Result() int64 { return r.r.Result }

// Path returns the path argument, or the created path for mkdtemp and
// mkstemp.
func (r FsReq) Path() string { return r.r.Path }

// File returns the descriptor opened by open or mkstemp, -1 otherwise.
func (r FsReq) File() File {
	switch r.FsType() {
	case FsOpen, FsMkstemp:
		if r.r.Result >= 0 {
			return File(r.r.Result)
		}
	}
	return -1
}

// Stat returns the result of stat, lstat or fstat.
func (r FsReq) Stat() Stat { return statOf(&r.r.Statbuf) }

// StatFs returns the result of statfs.
func (r FsReq) StatFs() StatFs {
	if st, ok := r.r.Ptr.(*native.StatFs); ok {
		return StatFs(*st)
	}
	return StatFs{}
}

// Link returns the target of readlink, or the resolved path of realpath.
func (r FsReq) Link() string {
	s, _ := r.r.Ptr.(string)
	return s
}

// Dir returns the directory opened by opendir.
func (r FsReq) Dir() Dir {
	if r.FsType() != FsOpendir {
		return Dir{}
	}
	d, _ := r.r.Ptr.(*native.Dir)
	return Dir{d: d}
}

// Dirents returns the entries read by readdir, or the entries of scandir
// not yet consumed by [FsReq.ScandirNext].
func (r FsReq) Dirents() []Dirent {
	if r.r.Result <= 0 {
		return nil
	}
	switch r.FsType() {
	case FsReaddir:
		if d, ok := r.r.Ptr.(*native.Dir); ok {
			return direntsOf(d.Dirents[:r.r.Result])
		}
	case FsScandir:
		var out []Dirent
		for {
			d, err := r.ScandirNext()
			if err != nil {
				return out
			}
			out = append(out, d)
		}
	}
	return nil
}

// ScandirNext returns the next entry of a scandir request, failing with
// [EOF] once exhausted.
func (r FsReq) ScandirNext() (Dirent, error) {
	d, code := r.r.ScandirNext()
	if code != 0 {
		return Dirent{}, errOf(code)
	}
	return Dirent{Name: d.Name, Type: DirentType(d.Type)}, nil
}

func fsTrampoline(req *native.FsReq) {
	completeReq(&req.Req, "fs", func(d *fsData) {
		defer req.Cleanup()
		if cb, ok := d.cb.get(); ok {
			cb(FsReq{r: req}, fsErr(req.Result))
		}
	})
}

func fsErr(result int64) error {
	if result < 0 {
		return errOf(int(result))
	}
	return nil
}

// fsOp issues one native fs verb, synchronously when cb is nil.
type fsOp func(n *native.Loop, req *native.FsReq, cb native.FsCb) int

// fsAsync queues op on the threadpool.
func (l *Loop) fsAsync(op fsOp, cb FsCb) (FsReq, error) {
	n, err := l.live()
	if err != nil {
		return FsReq{}, err
	}
	d := &fsData{cb: newSlot(cb)}
	if d.cb.isEmpty() {
		return FsReq{}, ErrNilCallback
	}
	req := new(native.FsReq)
	initReq(&req.Req, d)
	if code := op(n, req, fsTrampoline); code < 0 {
		req.Data = nil
		return FsReq{}, errOf(code)
	}
	return FsReq{r: req}, nil
}

// fsSync runs op on the calling goroutine, extracting the output with out
// before the request is cleaned up.
func fsSync[T any](l *Loop, op fsOp, out func(req *native.FsReq) T) (T, error) {
	var zero T
	n, err := l.live()
	if err != nil {
		return zero, err
	}
	req := new(native.FsReq)
	defer req.Cleanup()
	if code := op(n, req, nil); code < 0 {
		return zero, errOf(code)
	}
	return out(req), nil
}

func fsNone(*native.FsReq) struct{} { return struct{}{} }

func fsCount(req *native.FsReq) int { return int(req.Result) }

func fsStat(req *native.FsReq) Stat { return statOf(&req.Statbuf) }

func fsLink(req *native.FsReq) string { return FsReq{r: req}.Link() }

func fsSyncErr(l *Loop, op fsOp) error {
	_, err := fsSync(l, op, fsNone)
	return err
}
