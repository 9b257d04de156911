// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

type (
	// WorkCb runs on a threadpool goroutine. It must not touch handles or
	// requests of the loop.
	WorkCb func(req WorkReq)

	// AfterWorkCb runs on the loop once the work ran, or with [ECANCELED]
	// if the request was cancelled before it started.
	AfterWorkCb func(req WorkReq, err error)
)

type workData struct {
	workCb  slot[WorkCb]
	afterCb slot[AfterWorkCb]
}

// WorkReq is user code queued on the threadpool.
type WorkReq struct {
	r *native.WorkReq
}

// Req upcasts r.
func (r WorkReq) Req() Req { return Req{r: &r.r.Req} }

func workTrampoline(req *native.WorkReq) {
	d, ok := reqAddlOf[*workData](&req.Req)
	if !ok {
		return
	}
	if cb, ok := d.workCb.get(); ok {
		loopOf(req.Loop()).safeCall("work", func() { cb(WorkReq{r: req}) })
	}
}

func afterWorkTrampoline(req *native.WorkReq, status int) {
	completeReq(&req.Req, "after work", func(d *workData) {
		if cb, ok := d.afterCb.get(); ok {
			cb(WorkReq{r: req}, errOf(status))
		}
	})
}

// QueueWork runs work on the threadpool, then after on the loop. after may
// be nil.
func (l *Loop) QueueWork(work WorkCb, after AfterWorkCb) (WorkReq, error) {
	n, err := l.live()
	if err != nil {
		return WorkReq{}, err
	}
	d := &workData{workCb: newSlot(work), afterCb: newSlot(after)}
	if d.workCb.isEmpty() {
		return WorkReq{}, ErrNilCallback
	}
	req := new(native.WorkReq)
	initReq(&req.Req, d)
	if code := n.QueueWork(req, workTrampoline, afterWorkTrampoline); code != 0 {
		req.Data = nil
		return WorkReq{}, errOf(code)
	}
	return WorkReq{r: req}, nil
}
