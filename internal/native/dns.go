// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// AddrInfo is one entry of a getaddrinfo result, also used for hints.
type AddrInfo struct {
	Flags     int
	Family    int
	Socktype  int
	Protocol  int
	Addr      unix.Sockaddr
	Canonname string
}

type (
	// GetAddrInfoCb receives the resolved addresses, or a negative status.
	GetAddrInfoCb func(req *GetAddrInfoReq, status int, res []AddrInfo)
	// GetNameInfoCb receives the host and service names, or a negative
	// status.
	GetNameInfoCb func(req *GetNameInfoReq, status int, hostname, service string)
)

// GetAddrInfoReq resolves a node and service to socket addresses.
type GetAddrInfoReq struct {
	Req
	cb GetAddrInfoCb
	// Addrinfo holds the result once completed.
	Addrinfo []AddrInfo
	node     string
	service  string
	hints    AddrInfo
	status   int
	work     work
}

// GetNameInfoReq resolves a socket address to host and service names.
type GetNameInfoReq struct {
	Req
	cb GetNameInfoCb
	// Host and Service hold the result once completed.
	Host    string
	Service string
	addr    unix.Sockaddr
	flags   int
	status  int
	work    work
}

// GetAddrInfo resolves node and/or service, at least one must be
// non-empty. With a nil cb it completes synchronously, leaving the result in
// req.Addrinfo.
func (l *Loop) GetAddrInfo(req *GetAddrInfoReq, cb GetAddrInfoCb, node, service string, hints *AddrInfo) int {
	if node == "" && service == "" {
		return EINVAL
	}
	l.reqInit(&req.Req, GetAddrInfoReqType, req)
	req.cb = cb
	req.node, req.service = node, service
	req.hints = AddrInfo{}
	if hints != nil {
		req.hints = *hints
		req.hints.Addr = nil
	}
	req.Addrinfo = nil
	req.status = 0

	if cb == nil {
		req.Addrinfo, req.status = resolveAddrInfo(context.Background(), req.node, req.service, &req.hints)
		return req.status
	}

	req.register()
	l.submitWork(&req.work, func() {
		req.Addrinfo, req.status = resolveAddrInfo(context.Background(), req.node, req.service, &req.hints)
	}, func(status int) {
		req.unregister()
		if status != 0 {
			req.Addrinfo, req.status = nil, status
		}
		req.cb(req, req.status, req.Addrinfo)
	})
	return 0
}

func resolveAddrInfo(ctx context.Context, node, service string, hints *AddrInfo) ([]AddrInfo, int) {
	switch hints.Family {
	case unix.AF_UNSPEC, unix.AF_INET, unix.AF_INET6:
	default:
		return nil, EAI_FAMILY
	}

	socktypes := []int{unix.SOCK_STREAM, unix.SOCK_DGRAM}
	switch hints.Socktype {
	case 0:
	case unix.SOCK_STREAM, unix.SOCK_DGRAM:
		socktypes = []int{hints.Socktype}
	default:
		return nil, EAI_SOCKTYPE
	}

	port := 0
	if service != "" {
		p, err := strconv.Atoi(service)
		switch {
		case err == nil && p >= 0 && p <= 0xFFFF:
			port = p
		case hints.Flags&AINumericServ != 0:
			return nil, EAI_NONAME
		default:
			network := "tcp"
			if hints.Socktype == unix.SOCK_DGRAM {
				network = "udp"
			}
			if p, err = net.DefaultResolver.LookupPort(ctx, network, service); err != nil {
				return nil, EAI_SERVICE
			}
			port = p
		}
	}

	var addrs []netip.Addr
	var canon string
	switch {
	case node == "":
		if hints.Flags&AIPassive != 0 {
			addrs = []netip.Addr{netip.IPv6Unspecified(), netip.IPv4Unspecified()}
		} else {
			addrs = []netip.Addr{netip.IPv6Loopback(), netip.AddrFrom4([4]byte{127, 0, 0, 1})}
		}
	default:
		if a, err := netip.ParseAddr(node); err == nil {
			addrs = []netip.Addr{a.Unmap()}
			break
		}
		if hints.Flags&AINumericHost != 0 {
			return nil, EAI_NONAME
		}
		network := "ip"
		switch hints.Family {
		case unix.AF_INET:
			network = "ip4"
		case unix.AF_INET6:
			network = "ip6"
		}
		found, err := net.DefaultResolver.LookupNetIP(ctx, network, node)
		if err != nil {
			return nil, Translate(err)
		}
		for _, a := range found {
			addrs = append(addrs, a.Unmap())
		}
		if hints.Flags&AICanonName != 0 {
			if cname, err := net.DefaultResolver.LookupCNAME(ctx, node); err == nil {
				canon = strings.TrimSuffix(cname, ".")
			} else {
				canon = node
			}
		}
	}

	var res []AddrInfo
	for _, a := range addrs {
		family := unix.AF_INET
		if a.Is6() {
			family = unix.AF_INET6
		}
		if hints.Family != unix.AF_UNSPEC && hints.Family != family {
			continue
		}
		for _, st := range socktypes {
			proto := unix.IPPROTO_TCP
			if st == unix.SOCK_DGRAM {
				proto = unix.IPPROTO_UDP
			}
			if hints.Protocol != 0 && hints.Protocol != proto {
				continue
			}
			res = append(res, AddrInfo{
				Family:   family,
				Socktype: st,
				Protocol: proto,
				Addr:     sockaddrOf(a, port),
			})
		}
	}
	if len(res) == 0 {
		return nil, EAI_NONAME
	}
	res[0].Canonname = canon
	return res, 0
}

func sockaddrOf(a netip.Addr, port int) unix.Sockaddr {
	if a.Is4() {
		return &unix.SockaddrInet4{Port: port, Addr: a.As4()}
	}
	sa := &unix.SockaddrInet6{Port: port, Addr: a.As16()}
	if zone := a.Zone(); zone != "" {
		if ifi, err := net.InterfaceByName(zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return sa
}

// GetNameInfo resolves addr. Service names are always numeric. With a nil
// cb it completes synchronously, leaving the result in Host and Service.
func (l *Loop) GetNameInfo(req *GetNameInfoReq, cb GetNameInfoCb, addr unix.Sockaddr, flags int) int {
	ip, port, ok := sockaddrIP(addr)
	if !ok {
		return EINVAL
	}
	l.reqInit(&req.Req, GetNameInfoReqType, req)
	req.cb = cb
	req.addr = addr
	req.flags = flags
	req.Host, req.Service = "", ""
	req.status = 0

	resolve := func() {
		req.Host, req.Service, req.status = resolveNameInfo(context.Background(), ip, port, flags)
	}
	if cb == nil {
		resolve()
		return req.status
	}

	req.register()
	l.submitWork(&req.work, resolve, func(status int) {
		req.unregister()
		if status != 0 {
			req.Host, req.Service, req.status = "", "", status
		}
		req.cb(req, req.status, req.Host, req.Service)
	})
	return 0
}

func resolveNameInfo(ctx context.Context, ip netip.Addr, port, flags int) (string, string, int) {
	service := strconv.Itoa(port)
	host := ip.String()
	if flags&NINumericHost != 0 {
		return host, service, 0
	}
	names, err := net.DefaultResolver.LookupAddr(ctx, host)
	if err != nil || len(names) == 0 {
		if flags&NINameReqd != 0 {
			return "", "", EAI_NONAME
		}
		return host, service, 0
	}
	name := strings.TrimSuffix(names[0], ".")
	if flags&NINoFQDN != 0 {
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
	}
	return name, service, 0
}
