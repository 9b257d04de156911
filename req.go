// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// ReqType identifies the kind of a [Req].
type ReqType int

const (
	UnknownReq         = ReqType(native.UnknownReq)
	GenericReq         = ReqType(native.GenericReq)
	ConnectReqType     = ReqType(native.ConnectReqType)
	WriteReqType       = ReqType(native.WriteReqType)
	ShutdownReqType    = ReqType(native.ShutdownReqType)
	UDPSendReqType     = ReqType(native.UDPSendReqType)
	FsReqType          = ReqType(native.FsReqType)
	WorkReqType        = ReqType(native.WorkReqType)
	GetAddrInfoReqType = ReqType(native.GetAddrInfoReqType)
	GetNameInfoReqType = ReqType(native.GetNameInfoReqType)
	RandomReqType      = ReqType(native.RandomReqType)
)

// String returns the lower case name of t, e.g. "getaddrinfo".
func (t ReqType) String() string { return native.ReqType(t).String() }

// reqData is the side data block of a request, stored in the native
// request's user slot until its completion trampoline returns.
type reqData struct {
	addl reqAddl
}

// reqAddl is the per kind part of [reqData]. The set of implementations is
// closed.
type reqAddl interface {
	reqKind() ReqType
}

func (*connectData) reqKind() ReqType     { return ConnectReqType }
func (*writeData) reqKind() ReqType       { return WriteReqType }
func (*shutdownData) reqKind() ReqType    { return ShutdownReqType }
func (*udpSendData) reqKind() ReqType     { return UDPSendReqType }
func (*fsData) reqKind() ReqType          { return FsReqType }
func (*workData) reqKind() ReqType        { return WorkReqType }
func (*getAddrInfoData) reqKind() ReqType { return GetAddrInfoReqType }
func (*getNameInfoData) reqKind() ReqType { return GetNameInfoReqType }
func (*randomData) reqKind() ReqType      { return RandomReqType }

func initReq(r *native.Req, addl reqAddl) {
	r.Data = &reqData{addl: addl}
}

// reqAddlOf returns the per kind side data of r, ok is false once the
// request was released or if it holds a different kind.
func reqAddlOf[T reqAddl](r *native.Req) (addl T, ok bool) {
	d, _ := r.Data.(*reqData)
	if d == nil {
		return addl, false
	}
	addl, ok = d.addl.(T)
	return addl, ok
}

// completeReq runs fn, the user side of a completion trampoline, then
// releases the side data. The trampoline returns silently when the side
// data is missing or of another kind.
func completeReq[T reqAddl](r *native.Req, what string, fn func(addl T)) {
	addl, ok := reqAddlOf[T](r)
	if !ok {
		return
	}
	defer func() { r.Data = nil }()
	loopOf(r.Loop()).safeCall(what, func() { fn(addl) })
}

// Req is the base of every request kind. The zero value is invalid.
type Req struct {
	r *native.Req
}

// Req returns r, for symmetry with the concrete kinds.
func (r Req) Req() Req { return r }

// Type returns the kind of the request.
func (r Req) Type() ReqType {
	if r.r == nil {
		return UnknownReq
	}
	return ReqType(r.r.Type())
}

// Loop returns the loop the request was issued on.
func (r Req) Loop() *Loop {
	if r.r == nil {
		return nil
	}
	return loopOf(r.r.Loop())
}

// IsActive reports whether the request is in flight.
func (r Req) IsActive() bool { return r.r != nil && r.r.IsActive() }

// Cancel cancels a pending fs, work, getaddrinfo, getnameinfo or random
// request. The completion callback still runs, reporting [ECANCELED]. It
// fails with [EBUSY] once the request started executing, and with [EINVAL]
// for other kinds. Safe to call from any goroutine.
func (r Req) Cancel() error {
	if r.r == nil {
		return EINVAL
	}
	return errOf(native.Cancel(r.r))
}

func (r Req) convErr(to ReqType) error {
	return &ConversionError{From: r.Type(), To: to}
}

func (r Req) outer() any {
	if r.r == nil {
		return nil
	}
	return r.r.Outer()
}

// AsConnect converts r to a [ConnectReq].
func (r Req) AsConnect() (ConnectReq, error) {
	if v, ok := r.outer().(*native.ConnectReq); ok {
		return ConnectReq{r: v}, nil
	}
	return ConnectReq{}, r.convErr(ConnectReqType)
}

// AsWrite converts r to a [WriteReq].
func (r Req) AsWrite() (WriteReq, error) {
	if v, ok := r.outer().(*native.WriteReq); ok {
		return WriteReq{r: v}, nil
	}
	return WriteReq{}, r.convErr(WriteReqType)
}

// AsShutdown converts r to a [ShutdownReq].
func (r Req) AsShutdown() (ShutdownReq, error) {
	if v, ok := r.outer().(*native.ShutdownReq); ok {
		return ShutdownReq{r: v}, nil
	}
	return ShutdownReq{}, r.convErr(ShutdownReqType)
}

// AsUDPSend converts r to a [UDPSendReq].
func (r Req) AsUDPSend() (UDPSendReq, error) {
	if v, ok := r.outer().(*native.UDPSendReq); ok {
		return UDPSendReq{r: v}, nil
	}
	return UDPSendReq{}, r.convErr(UDPSendReqType)
}

// AsFs converts r to an [FsReq].
func (r Req) AsFs() (FsReq, error) {
	if v, ok := r.outer().(*native.FsReq); ok {
		return FsReq{r: v}, nil
	}
	return FsReq{}, r.convErr(FsReqType)
}

// AsWork converts r to a [WorkReq].
func (r Req) AsWork() (WorkReq, error) {
	if v, ok := r.outer().(*native.WorkReq); ok {
		return WorkReq{r: v}, nil
	}
	return WorkReq{}, r.convErr(WorkReqType)
}

// AsGetAddrInfo converts r to a [GetAddrInfoReq].
func (r Req) AsGetAddrInfo() (GetAddrInfoReq, error) {
	if v, ok := r.outer().(*native.GetAddrInfoReq); ok {
		return GetAddrInfoReq{r: v}, nil
	}
	return GetAddrInfoReq{}, r.convErr(GetAddrInfoReqType)
}

// AsGetNameInfo converts r to a [GetNameInfoReq].
func (r Req) AsGetNameInfo() (GetNameInfoReq, error) {
	if v, ok := r.outer().(*native.GetNameInfoReq); ok {
		return GetNameInfoReq{r: v}, nil
	}
	return GetNameInfoReq{}, r.convErr(GetNameInfoReqType)
}

// AsRandom converts r to a [RandomReq].
func (r Req) AsRandom() (RandomReq, error) {
	if v, ok := r.outer().(*native.RandomReq); ok {
		return RandomReq{r: v}, nil
	}
	return RandomReq{}, r.convErr(RandomReqType)
}
