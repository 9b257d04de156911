// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

func fsOpOpen(path string, flags int, mode uint32) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsOpen(req, path, flags, mode, cb)
	}
}

// FsOpen opens path with the os O_* flags, the result being the descriptor.
func (l *Loop) FsOpen(path string, flags int, mode uint32, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpOpen(path, flags, mode), cb)
}

// FsOpenSync is [Loop.FsOpen] completing before returning.
func (l *Loop) FsOpenSync(path string, flags int, mode uint32) (File, error) {
	return fsSync(l, fsOpOpen(path, flags, mode), func(req *native.FsReq) File { return File(req.Result) })
}

func fsOpClose(file File) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsClose(req, int(file), cb)
	}
}

// FsClose closes file.
func (l *Loop) FsClose(file File, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpClose(file), cb)
}

// FsCloseSync is [Loop.FsClose] completing before returning.
func (l *Loop) FsCloseSync(file File) error {
	return fsSyncErr(l, fsOpClose(file))
}

func fsOpRead(file File, bufs []Buf, offset int64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsRead(req, int(file), bufRecords(bufs), offset, cb)
	}
}

// FsRead reads into bufs, a negative offset reading from the current
// position. The result is the byte count, 0 at end of file.
func (l *Loop) FsRead(file File, bufs []Buf, offset int64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpRead(file, bufs, offset), cb)
}

// FsReadSync is [Loop.FsRead] completing before returning.
func (l *Loop) FsReadSync(file File, bufs []Buf, offset int64) (int, error) {
	return fsSync(l, fsOpRead(file, bufs, offset), fsCount)
}

func fsOpWrite(file File, bufs []ReadonlyBuf, offset int64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsWrite(req, int(file), records(bufs), offset, cb)
	}
}

// FsWrite writes bufs, a negative offset writing at the current position. The
// result is the byte count.
func (l *Loop) FsWrite(file File, bufs []ReadonlyBuf, offset int64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpWrite(file, bufs, offset), cb)
}

// FsWriteSync is [Loop.FsWrite] completing before returning.
func (l *Loop) FsWriteSync(file File, bufs []ReadonlyBuf, offset int64) (int, error) {
	return fsSync(l, fsOpWrite(file, bufs, offset), fsCount)
}

func fsOpUnlink(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsUnlink(req, path, cb)
	}
}

// FsUnlink removes a file.
func (l *Loop) FsUnlink(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpUnlink(path), cb)
}

// FsUnlinkSync is [Loop.FsUnlink] completing before returning.
func (l *Loop) FsUnlinkSync(path string) error {
	return fsSyncErr(l, fsOpUnlink(path))
}

func fsOpMkdir(path string, mode uint32) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsMkdir(req, path, mode, cb)
	}
}

// FsMkdir creates a directory.
func (l *Loop) FsMkdir(path string, mode uint32, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpMkdir(path, mode), cb)
}

// FsMkdirSync is [Loop.FsMkdir] completing before returning.
func (l *Loop) FsMkdirSync(path string, mode uint32) error {
	return fsSyncErr(l, fsOpMkdir(path, mode))
}

func fsOpMkdtemp(tpl string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsMkdtemp(req, tpl, cb)
	}
}

// FsMkdtemp creates a directory from tpl, which must end in XXXXXX. The
// created path is reported by [FsReq.Path].
func (l *Loop) FsMkdtemp(tpl string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpMkdtemp(tpl), cb)
}

// FsMkdtempSync is [Loop.FsMkdtemp] completing before returning.
func (l *Loop) FsMkdtempSync(tpl string) (string, error) {
	return fsSync(l, fsOpMkdtemp(tpl), func(req *native.FsReq) string { return req.Path })
}

func fsOpRmdir(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsRmdir(req, path, cb)
	}
}

// FsRmdir removes an empty directory.
func (l *Loop) FsRmdir(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpRmdir(path), cb)
}

// FsRmdirSync is [Loop.FsRmdir] completing before returning.
func (l *Loop) FsRmdirSync(path string) error {
	return fsSyncErr(l, fsOpRmdir(path))
}

func fsOpStat(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsStat(req, path, cb)
	}
}

// FsStat stats path.
func (l *Loop) FsStat(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpStat(path), cb)
}

// FsStatSync is [Loop.FsStat] completing before returning.
func (l *Loop) FsStatSync(path string) (Stat, error) {
	return fsSync(l, fsOpStat(path), fsStat)
}

func fsOpLstat(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsLstat(req, path, cb)
	}
}

// FsLstat stats path without following a final symlink.
func (l *Loop) FsLstat(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpLstat(path), cb)
}

// FsLstatSync is [Loop.FsLstat] completing before returning.
func (l *Loop) FsLstatSync(path string) (Stat, error) {
	return fsSync(l, fsOpLstat(path), fsStat)
}

func fsOpFstat(file File) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFstat(req, int(file), cb)
	}
}

// FsFstat stats file.
func (l *Loop) FsFstat(file File, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFstat(file), cb)
}

// FsFstatSync is [Loop.FsFstat] completing before returning.
func (l *Loop) FsFstatSync(file File) (Stat, error) {
	return fsSync(l, fsOpFstat(file), fsStat)
}

func fsOpStatfs(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsStatfs(req, path, cb)
	}
}

// FsStatfs describes the filesystem containing path.
func (l *Loop) FsStatfs(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpStatfs(path), cb)
}

// FsStatfsSync is [Loop.FsStatfs] completing before returning.
func (l *Loop) FsStatfsSync(path string) (StatFs, error) {
	return fsSync(l, fsOpStatfs(path), func(req *native.FsReq) StatFs { return FsReq{r: req}.StatFs() })
}

func fsOpRename(path, newPath string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsRename(req, path, newPath, cb)
	}
}

// FsRename renames path to newPath.
func (l *Loop) FsRename(path, newPath string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpRename(path, newPath), cb)
}

// FsRenameSync is [Loop.FsRename] completing before returning.
func (l *Loop) FsRenameSync(path, newPath string) error {
	return fsSyncErr(l, fsOpRename(path, newPath))
}

func fsOpFsync(file File) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFsync(req, int(file), cb)
	}
}

// FsFsync flushes file to storage.
func (l *Loop) FsFsync(file File, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFsync(file), cb)
}

// FsFsyncSync is [Loop.FsFsync] completing before returning.
func (l *Loop) FsFsyncSync(file File) error {
	return fsSyncErr(l, fsOpFsync(file))
}

func fsOpFdatasync(file File) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFdatasync(req, int(file), cb)
	}
}

// FsFdatasync flushes the data of file to storage.
func (l *Loop) FsFdatasync(file File, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFdatasync(file), cb)
}

// FsFdatasyncSync is [Loop.FsFdatasync] completing before returning.
func (l *Loop) FsFdatasyncSync(file File) error {
	return fsSyncErr(l, fsOpFdatasync(file))
}

func fsOpFtruncate(file File, offset int64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFtruncate(req, int(file), offset, cb)
	}
}

// FsFtruncate truncates file to offset bytes.
func (l *Loop) FsFtruncate(file File, offset int64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFtruncate(file, offset), cb)
}

// FsFtruncateSync is [Loop.FsFtruncate] completing before returning.
func (l *Loop) FsFtruncateSync(file File, offset int64) error {
	return fsSyncErr(l, fsOpFtruncate(file, offset))
}

func fsOpSendfile(out, in File, inOffset int64, length int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsSendfile(req, int(out), int(in), inOffset, length, cb)
	}
}

// FsSendfile copies length bytes from in at inOffset to out. The result is
// the byte count.
func (l *Loop) FsSendfile(out, in File, inOffset int64, length int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpSendfile(out, in, inOffset, length), cb)
}

// FsSendfileSync is [Loop.FsSendfile] completing before returning.
func (l *Loop) FsSendfileSync(out, in File, inOffset int64, length int) (int, error) {
	return fsSync(l, fsOpSendfile(out, in, inOffset, length), fsCount)
}

func fsOpAccess(path string, mode uint32) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsAccess(req, path, mode, cb)
	}
}

// FsAccess checks the caller's permissions for path.
func (l *Loop) FsAccess(path string, mode uint32, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpAccess(path, mode), cb)
}

// FsAccessSync is [Loop.FsAccess] completing before returning.
func (l *Loop) FsAccessSync(path string, mode uint32) error {
	return fsSyncErr(l, fsOpAccess(path, mode))
}

func fsOpChmod(path string, mode uint32) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsChmod(req, path, mode, cb)
	}
}

// FsChmod changes the mode of path.
func (l *Loop) FsChmod(path string, mode uint32, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpChmod(path, mode), cb)
}

// FsChmodSync is [Loop.FsChmod] completing before returning.
func (l *Loop) FsChmodSync(path string, mode uint32) error {
	return fsSyncErr(l, fsOpChmod(path, mode))
}

func fsOpFchmod(file File, mode uint32) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFchmod(req, int(file), mode, cb)
	}
}

// FsFchmod changes the mode of file.
func (l *Loop) FsFchmod(file File, mode uint32, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFchmod(file, mode), cb)
}

// FsFchmodSync is [Loop.FsFchmod] completing before returning.
func (l *Loop) FsFchmodSync(file File, mode uint32) error {
	return fsSyncErr(l, fsOpFchmod(file, mode))
}

func fsOpChown(path string, uid, gid int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsChown(req, path, uid, gid, cb)
	}
}

// FsChown changes the owner of path.
func (l *Loop) FsChown(path string, uid, gid int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpChown(path, uid, gid), cb)
}

// FsChownSync is [Loop.FsChown] completing before returning.
func (l *Loop) FsChownSync(path string, uid, gid int) error {
	return fsSyncErr(l, fsOpChown(path, uid, gid))
}

func fsOpFchown(file File, uid, gid int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFchown(req, int(file), uid, gid, cb)
	}
}

// FsFchown changes the owner of file.
func (l *Loop) FsFchown(file File, uid, gid int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFchown(file, uid, gid), cb)
}

// FsFchownSync is [Loop.FsFchown] completing before returning.
func (l *Loop) FsFchownSync(file File, uid, gid int) error {
	return fsSyncErr(l, fsOpFchown(file, uid, gid))
}

func fsOpLchown(path string, uid, gid int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsLchown(req, path, uid, gid, cb)
	}
}

// FsLchown changes the owner of path without following a final symlink.
func (l *Loop) FsLchown(path string, uid, gid int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpLchown(path, uid, gid), cb)
}

// FsLchownSync is [Loop.FsLchown] completing before returning.
func (l *Loop) FsLchownSync(path string, uid, gid int) error {
	return fsSyncErr(l, fsOpLchown(path, uid, gid))
}

func fsOpLink(path, newPath string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsLink(req, path, newPath, cb)
	}
}

// FsLink creates the hard link newPath to path.
func (l *Loop) FsLink(path, newPath string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpLink(path, newPath), cb)
}

// FsLinkSync is [Loop.FsLink] completing before returning.
func (l *Loop) FsLinkSync(path, newPath string) error {
	return fsSyncErr(l, fsOpLink(path, newPath))
}

func fsOpSymlink(path, newPath string, flags int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsSymlink(req, path, newPath, flags, cb)
	}
}

// FsSymlink creates the symlink newPath pointing at path.
func (l *Loop) FsSymlink(path, newPath string, flags int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpSymlink(path, newPath, flags), cb)
}

// FsSymlinkSync is [Loop.FsSymlink] completing before returning.
func (l *Loop) FsSymlinkSync(path, newPath string, flags int) error {
	return fsSyncErr(l, fsOpSymlink(path, newPath, flags))
}

func fsOpReadlink(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsReadlink(req, path, cb)
	}
}

// FsReadlink reads the target of a symlink, see [FsReq.Link].
func (l *Loop) FsReadlink(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpReadlink(path), cb)
}

// FsReadlinkSync is [Loop.FsReadlink] completing before returning.
func (l *Loop) FsReadlinkSync(path string) (string, error) {
	return fsSync(l, fsOpReadlink(path), fsLink)
}

func fsOpRealpath(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsRealpath(req, path, cb)
	}
}

// FsRealpath resolves path to its canonical absolute form, see [FsReq.Link].
func (l *Loop) FsRealpath(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpRealpath(path), cb)
}

// FsRealpathSync is [Loop.FsRealpath] completing before returning.
func (l *Loop) FsRealpathSync(path string) (string, error) {
	return fsSync(l, fsOpRealpath(path), fsLink)
}

func fsOpScandir(path string, flags int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsScandir(req, path, flags, cb)
	}
}

// FsScandir lists path in name order, excluding . and .., see
// [FsReq.ScandirNext].
func (l *Loop) FsScandir(path string, flags int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpScandir(path, flags), cb)
}

// FsScandirSync is [Loop.FsScandir] completing before returning.
func (l *Loop) FsScandirSync(path string, flags int) ([]Dirent, error) {
	return fsSync(l, fsOpScandir(path, flags), func(req *native.FsReq) []Dirent { return FsReq{r: req}.Dirents() })
}

func fsOpUtime(path string, atime, mtime float64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsUtime(req, path, atime, mtime, cb)
	}
}

// FsUtime sets the access and modification times of path, in seconds since
// the epoch.
func (l *Loop) FsUtime(path string, atime, mtime float64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpUtime(path, atime, mtime), cb)
}

// FsUtimeSync is [Loop.FsUtime] completing before returning.
func (l *Loop) FsUtimeSync(path string, atime, mtime float64) error {
	return fsSyncErr(l, fsOpUtime(path, atime, mtime))
}

func fsOpLutime(path string, atime, mtime float64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsLutime(req, path, atime, mtime, cb)
	}
}

// FsLutime is [Loop.FsUtime] without following a final symlink.
func (l *Loop) FsLutime(path string, atime, mtime float64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpLutime(path, atime, mtime), cb)
}

// FsLutimeSync is [Loop.FsLutime] completing before returning.
func (l *Loop) FsLutimeSync(path string, atime, mtime float64) error {
	return fsSyncErr(l, fsOpLutime(path, atime, mtime))
}

func fsOpFutime(file File, atime, mtime float64) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsFutime(req, int(file), atime, mtime, cb)
	}
}

// FsFutime sets the access and modification times of file.
func (l *Loop) FsFutime(file File, atime, mtime float64, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpFutime(file, atime, mtime), cb)
}

// FsFutimeSync is [Loop.FsFutime] completing before returning.
func (l *Loop) FsFutimeSync(file File, atime, mtime float64) error {
	return fsSyncErr(l, fsOpFutime(file, atime, mtime))
}

func fsOpCopyfile(path, newPath string, flags int) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsCopyfile(req, path, newPath, flags, cb)
	}
}

// FsCopyfile copies path to newPath, preserving the mode.
func (l *Loop) FsCopyfile(path, newPath string, flags int, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpCopyfile(path, newPath, flags), cb)
}

// FsCopyfileSync is [Loop.FsCopyfile] completing before returning.
func (l *Loop) FsCopyfileSync(path, newPath string, flags int) error {
	return fsSyncErr(l, fsOpCopyfile(path, newPath, flags))
}

func fsOpMkstemp(tpl string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsMkstemp(req, tpl, cb)
	}
}

// FsMkstemp creates and opens a file from tpl, which must end in XXXXXX.
// See [FsReq.File] and [FsReq.Path].
func (l *Loop) FsMkstemp(tpl string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpMkstemp(tpl), cb)
}

// FsMkstempSync is [Loop.FsMkstemp] completing before returning, with the
// descriptor and path of the created file.
func (l *Loop) FsMkstempSync(tpl string) (File, string, error) {
	type created struct {
		file File
		path string
	}
	c, err := fsSync(l, fsOpMkstemp(tpl), func(req *native.FsReq) created {
		return created{file: File(req.Result), path: req.Path}
	})
	if err != nil {
		return -1, "", err
	}
	return c.file, c.path, nil
}

func fsOpOpendir(path string) fsOp {
	return func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsOpendir(req, path, cb)
	}
}

// FsOpendir opens a directory stream, see [FsReq.Dir]. The stream must be
// closed with [Loop.FsClosedir].
func (l *Loop) FsOpendir(path string, cb FsCb) (FsReq, error) {
	return l.fsAsync(fsOpOpendir(path), cb)
}

// FsOpendirSync is [Loop.FsOpendir] completing before returning.
func (l *Loop) FsOpendirSync(path string) (Dir, error) {
	return fsSync(l, fsOpOpendir(path), func(req *native.FsReq) Dir { return FsReq{r: req}.Dir() })
}

// FsReaddir reads the next batch of at most the reserved number of entries
// from dir, see [Dir.Reserve] and [FsReq.Dirents]. The result is the number
// of entries read, 0 at the end of the stream. Only one read may be pending
// per directory.
func (l *Loop) FsReaddir(dir Dir, cb FsCb) (FsReq, error) {
	d, err := dir.native()
	if err != nil {
		return FsReq{}, err
	}
	return l.fsAsync(func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsReaddir(req, d, cb)
	}, cb)
}

// FsReaddirSync is [Loop.FsReaddir] completing before returning. An empty
// result marks the end of the stream.
func (l *Loop) FsReaddirSync(dir Dir) ([]Dirent, error) {
	d, err := dir.native()
	if err != nil {
		return nil, err
	}
	return fsSync(l, func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsReaddir(req, d, cb)
	}, func(req *native.FsReq) []Dirent { return direntsOf(d.Dirents[:req.Result]) })
}

// FsClosedir closes a directory stream.
func (l *Loop) FsClosedir(dir Dir, cb FsCb) (FsReq, error) {
	if dir.d == nil {
		return FsReq{}, EINVAL
	}
	return l.fsAsync(func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsClosedir(req, dir.d, cb)
	}, cb)
}

// FsClosedirSync is [Loop.FsClosedir] completing before returning.
func (l *Loop) FsClosedirSync(dir Dir) error {
	if dir.d == nil {
		return EINVAL
	}
	return fsSyncErr(l, func(n *native.Loop, req *native.FsReq, cb native.FsCb) int {
		return n.FsClosedir(req, dir.d, cb)
	})
}
