// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"

	"github.com/joeycumines/go-uv/internal/native"
)

// getaddrinfo and getnameinfo flags, with the platform's values.
const (
	AIPassive     = native.AIPassive
	AICanonName   = native.AICanonName
	AINumericHost = native.AINumericHost
	AIV4Mapped    = native.AIV4Mapped
	AIAll         = native.AIAll
	AIAddrConfig  = native.AIAddrConfig
	AINumericServ = native.AINumericServ

	NINumericHost = native.NINumericHost
	NINumericServ = native.NINumericServ
	NINoFQDN      = native.NINoFQDN
	NINameReqd    = native.NINameReqd
	NIDgram       = native.NIDgram
)

// AddrInfo is one resolved address. As hints only Flags, Family, Socktype
// and Protocol are used.
type AddrInfo struct {
	Flags     int
	Family    int
	Socktype  int
	Protocol  int
	Addr      netip.AddrPort
	Canonname string
}

type (
	// GetAddrInfoCb receives the resolved addresses. A cancelled request
	// reports [ECANCELED].
	GetAddrInfoCb func(req GetAddrInfoReq, res []AddrInfo, err error)

	// GetNameInfoCb receives the host and service names of an address.
	GetNameInfoCb func(req GetNameInfoReq, host, service string, err error)
)

type (
	getAddrInfoData struct{ cb slot[GetAddrInfoCb] }
	getNameInfoData struct{ cb slot[GetNameInfoCb] }
)

// GetAddrInfoReq is a pending address lookup.
type GetAddrInfoReq struct {
	r *native.GetAddrInfoReq
}

// Req upcasts r.
func (r GetAddrInfoReq) Req() Req { return Req{r: &r.r.Req} }

// GetNameInfoReq is a pending reverse lookup.
type GetNameInfoReq struct {
	r *native.GetNameInfoReq
}

// Req upcasts r.
func (r GetNameInfoReq) Req() Req { return Req{r: &r.r.Req} }

func addrInfosOf(in []native.AddrInfo) []AddrInfo {
	if len(in) == 0 {
		return nil
	}
	out := make([]AddrInfo, len(in))
	for i, ai := range in {
		out[i] = AddrInfo{
			Flags:     ai.Flags,
			Family:    ai.Family,
			Socktype:  ai.Socktype,
			Protocol:  ai.Protocol,
			Addr:      fromSockaddr(ai.Addr),
			Canonname: ai.Canonname,
		}
	}
	return out
}

func nativeHints(hints *AddrInfo) *native.AddrInfo {
	if hints == nil {
		return nil
	}
	return &native.AddrInfo{
		Flags:    hints.Flags,
		Family:   hints.Family,
		Socktype: hints.Socktype,
		Protocol: hints.Protocol,
	}
}

func getAddrInfoTrampoline(req *native.GetAddrInfoReq, status int, res []native.AddrInfo) {
	completeReq(&req.Req, "getaddrinfo", func(d *getAddrInfoData) {
		if cb, ok := d.cb.get(); ok {
			cb(GetAddrInfoReq{r: req}, addrInfosOf(res), errOf(status))
		}
	})
}

// GetAddrInfo resolves node and/or service on the threadpool. At least one
// of them must be non-empty, hints may be nil.
func (l *Loop) GetAddrInfo(node, service string, hints *AddrInfo, cb GetAddrInfoCb) (GetAddrInfoReq, error) {
	n, err := l.live()
	if err != nil {
		return GetAddrInfoReq{}, err
	}
	d := &getAddrInfoData{cb: newSlot(cb)}
	if d.cb.isEmpty() {
		return GetAddrInfoReq{}, ErrNilCallback
	}
	req := new(native.GetAddrInfoReq)
	initReq(&req.Req, d)
	if code := n.GetAddrInfo(req, getAddrInfoTrampoline, node, service, nativeHints(hints)); code != 0 {
		req.Data = nil
		return GetAddrInfoReq{}, errOf(code)
	}
	return GetAddrInfoReq{r: req}, nil
}

// GetAddrInfoSync is [Loop.GetAddrInfo] resolving on the calling goroutine.
func (l *Loop) GetAddrInfoSync(node, service string, hints *AddrInfo) ([]AddrInfo, error) {
	n, err := l.live()
	if err != nil {
		return nil, err
	}
	req := new(native.GetAddrInfoReq)
	if code := n.GetAddrInfo(req, nil, node, service, nativeHints(hints)); code != 0 {
		return nil, errOf(code)
	}
	return addrInfosOf(req.Addrinfo), nil
}

func getNameInfoTrampoline(req *native.GetNameInfoReq, status int, host, service string) {
	completeReq(&req.Req, "getnameinfo", func(d *getNameInfoData) {
		if cb, ok := d.cb.get(); ok {
			cb(GetNameInfoReq{r: req}, host, service, errOf(status))
		}
	})
}

// GetNameInfo resolves addr to a host name on the threadpool. The service
// is always reported numerically.
func (l *Loop) GetNameInfo(addr netip.AddrPort, flags int, cb GetNameInfoCb) (GetNameInfoReq, error) {
	n, err := l.live()
	if err != nil {
		return GetNameInfoReq{}, err
	}
	sa, err := toSockaddr(addr)
	if err != nil {
		return GetNameInfoReq{}, err
	}
	d := &getNameInfoData{cb: newSlot(cb)}
	if d.cb.isEmpty() {
		return GetNameInfoReq{}, ErrNilCallback
	}
	req := new(native.GetNameInfoReq)
	initReq(&req.Req, d)
	if code := n.GetNameInfo(req, getNameInfoTrampoline, sa, flags); code != 0 {
		req.Data = nil
		return GetNameInfoReq{}, errOf(code)
	}
	return GetNameInfoReq{r: req}, nil
}

// GetNameInfoSync is [Loop.GetNameInfo] resolving on the calling goroutine.
func (l *Loop) GetNameInfoSync(addr netip.AddrPort, flags int) (host, service string, err error) {
	n, err := l.live()
	if err != nil {
		return "", "", err
	}
	sa, err := toSockaddr(addr)
	if err != nil {
		return "", "", err
	}
	req := new(native.GetNameInfoReq)
	if code := n.GetNameInfo(req, nil, sa, flags); code != 0 {
		return "", "", errOf(code)
	}
	return req.Host, req.Service, nil
}
