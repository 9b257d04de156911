// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// IP4Addr parses an IPv4 address and port.
func IP4Addr(ip string, port uint16) (netip.AddrPort, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return netip.AddrPort{}, EINVAL
	}
	return netip.AddrPortFrom(a, port), nil
}

// IP6Addr parses an IPv6 address, optionally with a zone, and port.
func IP6Addr(ip string, port uint16) (netip.AddrPort, error) {
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is6() {
		return netip.AddrPort{}, EINVAL
	}
	return netip.AddrPortFrom(a, port), nil
}

// toSockaddr converts ap for the native layer. IPv4 mapped IPv6 addresses
// stay IPv6.
func toSockaddr(ap netip.AddrPort) (unix.Sockaddr, error) {
	if !ap.IsValid() {
		return nil, EINVAL
	}
	a := ap.Addr()
	if a.Is4() {
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: a.As4()}, nil
	}
	sa := &unix.SockaddrInet6{Port: int(ap.Port()), Addr: a.As16()}
	if zone := a.Zone(); zone != "" {
		if id, err := strconv.ParseUint(zone, 10, 32); err == nil {
			sa.ZoneId = uint32(id)
		} else if ifi, err := net.InterfaceByName(zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		} else {
			return nil, EINVAL
		}
	}
	return sa, nil
}

// fromSockaddr converts a native address, the zero value for nil and
// non IP families.
func fromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(v.Addr), uint16(v.Port))
	case *unix.SockaddrInet6:
		a := netip.AddrFrom16(v.Addr)
		if v.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(v.ZoneId)); err == nil {
				a = a.WithZone(ifi.Name)
			} else {
				a = a.WithZone(strconv.FormatUint(uint64(v.ZoneId), 10))
			}
		}
		return netip.AddrPortFrom(a, uint16(v.Port))
	}
	return netip.AddrPort{}
}
