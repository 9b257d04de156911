// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package native

import "golang.org/x/sys/unix"

const (
	ENONET    = -4056
	EREMOTEIO = -4030
	EFTYPE    = -int(unix.EFTYPE)
)
