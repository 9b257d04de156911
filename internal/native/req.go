// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import "fmt"

// ReqType identifies the kind of a [Req].
type ReqType int

const (
	UnknownReq ReqType = iota
	GenericReq
	ConnectReqType
	WriteReqType
	ShutdownReqType
	UDPSendReqType
	FsReqType
	WorkReqType
	GetAddrInfoReqType
	GetNameInfoReqType
	RandomReqType
)

var reqTypeNames = [...]string{
	UnknownReq:         "unknown",
	GenericReq:         "req",
	ConnectReqType:     "connect",
	WriteReqType:       "write",
	ShutdownReqType:    "shutdown",
	UDPSendReqType:     "udp_send",
	FsReqType:          "fs",
	WorkReqType:        "work",
	GetAddrInfoReqType: "getaddrinfo",
	GetNameInfoReqType: "getnameinfo",
	RandomReqType:      "random",
}

func (t ReqType) String() string {
	if t >= 0 && int(t) < len(reqTypeNames) {
		return reqTypeNames[t]
	}
	return fmt.Sprintf("ReqType(%d)", int(t))
}

// Req is the common header of every request kind.
type Req struct {
	// Data is the opaque user slot.
	Data any

	loop   *Loop
	typ    ReqType
	outer  any
	active bool
}

func (l *Loop) reqInit(r *Req, typ ReqType, outer any) {
	data := r.Data
	*r = Req{Data: data, loop: l, typ: typ, outer: outer}
}

func (r *Req) register() {
	if r.active {
		return
	}
	r.active = true
	r.loop.activeReqs++
}

func (r *Req) unregister() {
	if !r.active {
		return
	}
	r.active = false
	r.loop.activeReqs--
}

// Type returns the request kind.
func (r *Req) Type() ReqType { return r.typ }

// Loop returns the loop the request was issued on, nil before first use.
func (r *Req) Loop() *Loop { return r.loop }

// Outer returns the concrete structure embedding r.
func (r *Req) Outer() any { return r.outer }

// IsActive reports whether the request is in flight.
func (r *Req) IsActive() bool { return r.active }

// Cancel cancels a pending threadpool request. Only fs, work, getaddrinfo,
// getnameinfo and random requests are cancellable, and only while they are
// still queued. Safe to call from any goroutine.
func Cancel(r *Req) int {
	var w *work
	switch o := r.outer.(type) {
	case *FsReq:
		w = &o.work
	case *WorkReq:
		w = &o.work
	case *GetAddrInfoReq:
		w = &o.work
	case *GetNameInfoReq:
		w = &o.work
	case *RandomReq:
		w = &o.work
	default:
		return EINVAL
	}
	return cancelWork(w)
}
