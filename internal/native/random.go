// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "crypto/rand"

// RandomCb receives the filled buffer, or a negative status.
type RandomCb func(req *RandomReq, status int, buf []byte)

// RandomReq fills a buffer from the system CSPRNG.
type RandomReq struct {
	Req
	cb     RandomCb
	buf    []byte
	status int
	work   work
}

// Random fills buf with cryptographically strong random bytes. flags must be
// zero. With a nil cb it completes synchronously and returns the status.
func (l *Loop) Random(req *RandomReq, buf []byte, flags uint, cb RandomCb) int {
	if flags != 0 {
		return EINVAL
	}
	if cb == nil {
		return fillRandom(buf)
	}
	if req == nil {
		return EINVAL
	}
	l.reqInit(&req.Req, RandomReqType, req)
	req.cb = cb
	req.buf = buf
	req.register()
	l.submitWork(&req.work, func() { req.status = fillRandom(req.buf) }, func(status int) {
		req.unregister()
		if status == 0 {
			status = req.status
		}
		req.cb(req, status, req.buf)
	})
	return 0
}

func fillRandom(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	_, err := rand.Read(buf)
	return Translate(err)
}
