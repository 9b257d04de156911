// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

type (
	// WorkCb runs on a threadpool goroutine.
	WorkCb func(req *WorkReq)
	// AfterWorkCb runs on the loop once the work ran or was cancelled.
	AfterWorkCb func(req *WorkReq, status int)
)

// WorkReq runs user code on the threadpool.
type WorkReq struct {
	Req
	workCb  WorkCb
	afterCb AfterWorkCb
	work    work
}

// QueueWork queues workCb on the threadpool. afterCb, if non-nil, runs on the
// loop with 0, or ECANCELED if the request was cancelled before it started.
func (l *Loop) QueueWork(req *WorkReq, workCb WorkCb, afterCb AfterWorkCb) int {
	if workCb == nil {
		return EINVAL
	}
	l.reqInit(&req.Req, WorkReqType, req)
	req.workCb = workCb
	req.afterCb = afterCb
	req.register()
	l.submitWork(&req.work, func() { req.workCb(req) }, func(status int) {
		req.unregister()
		if req.afterCb != nil {
			req.afterCb(req, status)
		}
	})
	return 0
}
