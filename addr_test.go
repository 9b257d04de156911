// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIP4Addr(t *testing.T) {
	ap, err := IP4Addr("127.0.0.1", 7000)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:7000"), ap)

	for _, bad := range []string{"", "::1", "256.0.0.1", "localhost"} {
		_, err := IP4Addr(bad, 1)
		assert.ErrorIs(t, err, EINVAL, bad)
	}
}

func TestIP6Addr(t *testing.T) {
	ap, err := IP6Addr("::1", 80)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("[::1]:80"), ap)

	_, err = IP6Addr("127.0.0.1", 80)
	assert.ErrorIs(t, err, EINVAL)
}

func TestSockaddrConversion(t *testing.T) {
	for _, s := range []string{"127.0.0.1:7000", "0.0.0.0:0", "[::1]:443", "[::ffff:10.0.0.1]:53"} {
		t.Run(s, func(t *testing.T) {
			ap := netip.MustParseAddrPort(s)
			sa, err := toSockaddr(ap)
			require.NoError(t, err)
			assert.Equal(t, ap, fromSockaddr(sa))
		})
	}

	sa, err := toSockaddr(netip.MustParseAddrPort("[::ffff:10.0.0.1]:53"))
	require.NoError(t, err)
	assert.IsType(t, &unix.SockaddrInet6{}, sa)

	_, err = toSockaddr(netip.AddrPort{})
	assert.ErrorIs(t, err, EINVAL)
	assert.False(t, fromSockaddr(nil).IsValid())
	assert.False(t, fromSockaddr(&unix.SockaddrUnix{Name: "/tmp/x"}).IsValid())
}
