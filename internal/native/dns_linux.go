// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package native

// getaddrinfo and getnameinfo flags, glibc values.
const (
	AIPassive     = 0x0001
	AICanonName   = 0x0002
	AINumericHost = 0x0004
	AIV4Mapped    = 0x0008
	AIAll         = 0x0010
	AIAddrConfig  = 0x0020
	AINumericServ = 0x0400

	NINumericHost = 1
	NINumericServ = 2
	NINoFQDN      = 4
	NINameReqd    = 8
	NIDgram       = 16
)
