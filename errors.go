// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"fmt"

	"github.com/joeycumines/go-uv/internal/native"
)

// Error is a native error code. The set of values is closed, each constant
// below round trips through [Error.Code] and [ErrorFromCode].
type Error int

// Native error codes.
const (
	E2BIG           = Error(native.E2BIG)
	EACCES          = Error(native.EACCES)
	EADDRINUSE      = Error(native.EADDRINUSE)
	EADDRNOTAVAIL   = Error(native.EADDRNOTAVAIL)
	EAFNOSUPPORT    = Error(native.EAFNOSUPPORT)
	EAGAIN          = Error(native.EAGAIN)
	EAI_ADDRFAMILY  = Error(native.EAI_ADDRFAMILY)
	EAI_AGAIN       = Error(native.EAI_AGAIN)
	EAI_BADFLAGS    = Error(native.EAI_BADFLAGS)
	EAI_BADHINTS    = Error(native.EAI_BADHINTS)
	EAI_CANCELED    = Error(native.EAI_CANCELED)
	EAI_FAIL        = Error(native.EAI_FAIL)
	EAI_FAMILY      = Error(native.EAI_FAMILY)
	EAI_MEMORY      = Error(native.EAI_MEMORY)
	EAI_NODATA      = Error(native.EAI_NODATA)
	EAI_NONAME      = Error(native.EAI_NONAME)
	EAI_OVERFLOW    = Error(native.EAI_OVERFLOW)
	EAI_PROTOCOL    = Error(native.EAI_PROTOCOL)
	EAI_SERVICE     = Error(native.EAI_SERVICE)
	EAI_SOCKTYPE    = Error(native.EAI_SOCKTYPE)
	EALREADY        = Error(native.EALREADY)
	EBADF           = Error(native.EBADF)
	EBUSY           = Error(native.EBUSY)
	ECANCELED       = Error(native.ECANCELED)
	ECHARSET        = Error(native.ECHARSET)
	ECONNABORTED    = Error(native.ECONNABORTED)
	ECONNREFUSED    = Error(native.ECONNREFUSED)
	ECONNRESET      = Error(native.ECONNRESET)
	EDESTADDRREQ    = Error(native.EDESTADDRREQ)
	EEXIST          = Error(native.EEXIST)
	EFAULT          = Error(native.EFAULT)
	EFBIG           = Error(native.EFBIG)
	EFTYPE          = Error(native.EFTYPE)
	EHOSTDOWN       = Error(native.EHOSTDOWN)
	EHOSTUNREACH    = Error(native.EHOSTUNREACH)
	EILSEQ          = Error(native.EILSEQ)
	EINTR           = Error(native.EINTR)
	EINVAL          = Error(native.EINVAL)
	EIO             = Error(native.EIO)
	EISCONN         = Error(native.EISCONN)
	EISDIR          = Error(native.EISDIR)
	ELOOP           = Error(native.ELOOP)
	EMFILE          = Error(native.EMFILE)
	EMLINK          = Error(native.EMLINK)
	EMSGSIZE        = Error(native.EMSGSIZE)
	ENAMETOOLONG    = Error(native.ENAMETOOLONG)
	ENETDOWN        = Error(native.ENETDOWN)
	ENETUNREACH     = Error(native.ENETUNREACH)
	ENFILE          = Error(native.ENFILE)
	ENOBUFS         = Error(native.ENOBUFS)
	ENODEV          = Error(native.ENODEV)
	ENOENT          = Error(native.ENOENT)
	ENOMEM          = Error(native.ENOMEM)
	ENONET          = Error(native.ENONET)
	ENOPROTOOPT     = Error(native.ENOPROTOOPT)
	ENOSPC          = Error(native.ENOSPC)
	ENOSYS          = Error(native.ENOSYS)
	ENOTCONN        = Error(native.ENOTCONN)
	ENOTDIR         = Error(native.ENOTDIR)
	ENOTEMPTY       = Error(native.ENOTEMPTY)
	ENOTSOCK        = Error(native.ENOTSOCK)
	ENOTSUP         = Error(native.ENOTSUP)
	ENOTTY          = Error(native.ENOTTY)
	ENXIO           = Error(native.ENXIO)
	EOF             = Error(native.EOF)
	EPERM           = Error(native.EPERM)
	EPIPE           = Error(native.EPIPE)
	EPROTO          = Error(native.EPROTO)
	EPROTONOSUPPORT = Error(native.EPROTONOSUPPORT)
	EPROTOTYPE      = Error(native.EPROTOTYPE)
	ERANGE          = Error(native.ERANGE)
	EREMOTEIO       = Error(native.EREMOTEIO)
	EROFS           = Error(native.EROFS)
	ESHUTDOWN       = Error(native.ESHUTDOWN)
	ESPIPE          = Error(native.ESPIPE)
	ESRCH           = Error(native.ESRCH)
	ETIMEDOUT       = Error(native.ETIMEDOUT)
	ETXTBSY         = Error(native.ETXTBSY)
	EXDEV           = Error(native.EXDEV)
	UNKNOWN         = Error(native.UNKNOWN)
)

var (
	// ErrHandleClosed is returned by operations on a handle that is closing
	// or already closed. It matches [EINVAL] with [errors.Is].
	ErrHandleClosed = fmt.Errorf("uv: handle closed: %w", EINVAL)

	// ErrLoopClosed is returned when constructing handles or requests on a
	// closed loop. It matches [EINVAL] with [errors.Is].
	ErrLoopClosed = fmt.Errorf("uv: loop closed: %w", EINVAL)

	// ErrNilCallback is returned when a mandatory callback is nil. It
	// matches [EINVAL] with [errors.Is].
	ErrNilCallback = fmt.Errorf("uv: nil callback: %w", EINVAL)
)

// ErrorFromCode maps a native status to an error: nil for non negative
// codes, the matching [Error] for known negative codes, and [UNKNOWN]
// otherwise.
func ErrorFromCode(code int) error {
	if code >= 0 {
		return nil
	}
	if !native.Known(code) {
		return UNKNOWN
	}
	return Error(code)
}

// Code returns the native value of e.
func (e Error) Code() int { return int(e) }

// Name returns the short symbolic name, e.g. "ECONNREFUSED".
func (e Error) Name() string { return native.ErrName(int(e)) }

// Message returns the descriptive message, e.g. "connection refused".
func (e Error) Message() string { return native.StrError(int(e)) }

// Error implements the error interface.
func (e Error) Error() string {
	return e.Name() + ": " + e.Message()
}

// Errors returns every [Error] value, in no particular order.
func Errors() []Error {
	codes := native.Codes()
	out := make([]Error, len(codes))
	for i, code := range codes {
		out[i] = Error(code)
	}
	return out
}

// ConversionError is returned by fallible downcasts, when the native kind of
// the value does not match the requested type.
type ConversionError struct {
	// From is the observed kind.
	From fmt.Stringer
	// To is the requested kind.
	To fmt.Stringer
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("uv: cannot convert %s to %s", e.From, e.To)
}

// Is reports whether target is a [*ConversionError] with matching kinds,
// nil kinds in target act as wildcards.
func (e *ConversionError) Is(target error) bool {
	other, ok := target.(*ConversionError)
	if !ok || other == nil {
		return false
	}
	return (other.From == nil || other.From == e.From) &&
		(other.To == nil || other.To == e.To)
}

// errOf converts a native return value to an error.
func errOf(code int) error {
	return ErrorFromCode(code)
}

// result converts a native return value that doubles as a count.
func result(code int) (int, error) {
	if code < 0 {
		return 0, ErrorFromCode(code)
	}
	return code, nil
}
