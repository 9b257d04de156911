// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

// getaddrinfo and getnameinfo flags, BSD values.
const (
	AIPassive     = 0x00000001
	AICanonName   = 0x00000002
	AINumericHost = 0x00000004
	AINumericServ = 0x00001000
	AIAll         = 0x00000100
	AIV4Mapped    = 0x00000800
	AIAddrConfig  = 0x00000400

	NINoFQDN      = 0x00000001
	NINumericHost = 0x00000002
	NINameReqd    = 0x00000004
	NINumericServ = 0x00000008
	NIDgram       = 0x00000010
)
