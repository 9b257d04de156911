// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFs_syncRoundTrip(t *testing.T) {
	l := newTestLoop(t)
	path := filepath.Join(t.TempDir(), "file")

	var req FsReq
	fd := l.FsOpen(&req, path, unix.O_CREAT|unix.O_RDWR, 0o644, nil)
	require.GreaterOrEqual(t, fd, 0)
	assert.Equal(t, FsOpen, req.FsType())
	assert.Equal(t, path, req.Path)

	data := []byte("hello world")
	assert.Equal(t, len(data), l.FsWrite(&req, fd, []Buf{BufInit(data[:6]), BufInit(data[6:])}, 0, nil))

	out := make([]byte, 32)
	assert.Equal(t, len(data), l.FsRead(&req, fd, []Buf{BufInit(out)}, 0, nil))
	assert.Equal(t, data, out[:len(data)])
	assert.Zero(t, l.FsRead(&req, fd, []Buf{BufInit(out)}, int64(len(data)), nil))

	require.Zero(t, l.FsFstat(&req, fd, nil))
	assert.Equal(t, uint64(len(data)), req.Statbuf.Size)
	assert.Zero(t, l.FsClose(&req, fd, nil))

	require.Zero(t, l.FsStat(&req, path, nil))
	assert.Equal(t, uint64(len(data)), req.Statbuf.Size)
	assert.Equal(t, uint64(unix.S_IFREG), req.Statbuf.Mode&unix.S_IFMT)

	assert.Zero(t, l.FsUnlink(&req, path, nil))
	assert.Equal(t, ENOENT, l.FsStat(&req, path, nil))
	assert.Equal(t, EINVAL, l.FsRead(&req, fd, nil, 0, nil))
}

func TestFs_asyncStat(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()
	var (
		req    FsReq
		result int64 = 1
		calls  int
	)
	require.Zero(t, l.FsStat(&req, filepath.Join(dir, "missing"), func(r *FsReq) {
		calls++
		assert.Same(t, &req, r)
		assert.False(t, r.IsActive())
		result = r.Result
	}))
	assert.True(t, req.IsActive())
	runWithDeadline(t, l, 5*time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(ENOENT), result)
}

func TestFs_scandir(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o755))

	var req FsReq
	require.Equal(t, 2, l.FsScandir(&req, dir, 0, nil))
	d, code := req.ScandirNext()
	require.Zero(t, code)
	assert.Equal(t, Dirent{Name: "a", Type: DirentDir}, d)
	d, code = req.ScandirNext()
	require.Zero(t, code)
	assert.Equal(t, Dirent{Name: "b", Type: DirentFile}, d)
	_, code = req.ScandirNext()
	assert.Equal(t, EOF, code)
}

func TestFs_dirStream(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()
	for _, name := range []string{"x", "y", "z"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	var req FsReq
	require.Zero(t, l.FsOpendir(&req, dir, nil))
	d, ok := req.Ptr.(*Dir)
	require.True(t, ok)
	assert.Equal(t, EINVAL, l.FsReaddir(&req, d, nil))

	d.Dirents = make([]Dirent, 2)
	var names []string
	for {
		n := l.FsReaddir(&req, d, nil)
		require.GreaterOrEqual(t, n, 0)
		if n == 0 {
			break
		}
		for _, e := range d.Dirents[:n] {
			names = append(names, e.Name)
		}
	}
	assert.ElementsMatch(t, []string{"x", "y", "z"}, names)
	assert.Zero(t, l.FsClosedir(&req, d, nil))
	assert.Equal(t, EINVAL, l.FsClosedir(&req, d, nil))
}

func TestFs_temp(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()
	var req FsReq

	require.Zero(t, l.FsMkdtemp(&req, filepath.Join(dir, "d-XXXXXX"), nil))
	assert.True(t, strings.HasPrefix(req.Path, filepath.Join(dir, "d-")))
	assert.NotContains(t, req.Path, "XXXXXX")
	st, err := os.Stat(req.Path)
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	fd := l.FsMkstemp(&req, filepath.Join(dir, "f-XXXXXX"), nil)
	require.GreaterOrEqual(t, fd, 0)
	assert.NotContains(t, req.Path, "XXXXXX")
	assert.Zero(t, l.FsClose(&req, fd, nil))

	assert.Equal(t, EINVAL, l.FsMkdtemp(&req, filepath.Join(dir, "bad"), nil))
}

func TestFs_links(t *testing.T) {
	l := newTestLoop(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	var req FsReq
	require.Zero(t, l.FsSymlink(&req, target, link, 0, nil))
	require.Zero(t, l.FsReadlink(&req, link, nil))
	assert.Equal(t, target, req.Ptr)
	require.Zero(t, l.FsLstat(&req, link, nil))
	assert.Equal(t, uint64(unix.S_IFLNK), req.Statbuf.Mode&unix.S_IFMT)

	require.Zero(t, l.FsRealpath(&req, link, nil))
	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, req.Ptr)

	copied := filepath.Join(dir, "copy")
	require.Zero(t, l.FsCopyfile(&req, target, copied, 0, nil))
	assert.Equal(t, EEXIST, l.FsCopyfile(&req, target, copied, CopyfileExcl, nil))
	b, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))
}
