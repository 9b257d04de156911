// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// RandomCb receives the filled buffer.
type RandomCb func(req RandomReq, buf []byte, err error)

type randomData struct{ cb slot[RandomCb] }

// RandomReq is a pending fill from the system CSPRNG.
type RandomReq struct {
	r *native.RandomReq
}

// Req upcasts r.
func (r RandomReq) Req() Req { return Req{r: &r.r.Req} }

func randomTrampoline(req *native.RandomReq, status int, buf []byte) {
	completeReq(&req.Req, "random", func(d *randomData) {
		if cb, ok := d.cb.get(); ok {
			if status != 0 {
				buf = nil
			}
			cb(RandomReq{r: req}, buf, errOf(status))
		}
	})
}

// Random fills a fresh buffer of size bytes on the threadpool. flags must
// be 0.
func (l *Loop) Random(size int, flags uint, cb RandomCb) (RandomReq, error) {
	n, err := l.live()
	if err != nil {
		return RandomReq{}, err
	}
	if size < 0 {
		return RandomReq{}, EINVAL
	}
	d := &randomData{cb: newSlot(cb)}
	if d.cb.isEmpty() {
		return RandomReq{}, ErrNilCallback
	}
	req := new(native.RandomReq)
	initReq(&req.Req, d)
	if code := n.Random(req, make([]byte, size), flags, randomTrampoline); code != 0 {
		req.Data = nil
		return RandomReq{}, errOf(code)
	}
	return RandomReq{r: req}, nil
}

// RandomSync is [Loop.Random] blocking the calling goroutine.
func (l *Loop) RandomSync(size int, flags uint) ([]byte, error) {
	n, err := l.live()
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, EINVAL
	}
	buf := make([]byte, size)
	if code := n.Random(nil, buf, flags, nil); code != 0 {
		return nil, errOf(code)
	}
	return buf, nil
}
