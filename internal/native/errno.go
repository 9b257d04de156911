// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Error codes. System errors are the negated errno value, the remaining codes
// occupy reserved ranges so they never collide with a platform errno.
const (
	E2BIG           = -int(unix.E2BIG)
	EACCES          = -int(unix.EACCES)
	EADDRINUSE      = -int(unix.EADDRINUSE)
	EADDRNOTAVAIL   = -int(unix.EADDRNOTAVAIL)
	EAFNOSUPPORT    = -int(unix.EAFNOSUPPORT)
	EAGAIN          = -int(unix.EAGAIN)
	EALREADY        = -int(unix.EALREADY)
	EBADF           = -int(unix.EBADF)
	EBUSY           = -int(unix.EBUSY)
	ECANCELED       = -int(unix.ECANCELED)
	ECONNABORTED    = -int(unix.ECONNABORTED)
	ECONNREFUSED    = -int(unix.ECONNREFUSED)
	ECONNRESET      = -int(unix.ECONNRESET)
	EDESTADDRREQ    = -int(unix.EDESTADDRREQ)
	EEXIST          = -int(unix.EEXIST)
	EFAULT          = -int(unix.EFAULT)
	EFBIG           = -int(unix.EFBIG)
	EHOSTDOWN       = -int(unix.EHOSTDOWN)
	EHOSTUNREACH    = -int(unix.EHOSTUNREACH)
	EILSEQ          = -int(unix.EILSEQ)
	EINTR           = -int(unix.EINTR)
	EINVAL          = -int(unix.EINVAL)
	EIO             = -int(unix.EIO)
	EISCONN         = -int(unix.EISCONN)
	EISDIR          = -int(unix.EISDIR)
	ELOOP           = -int(unix.ELOOP)
	EMFILE          = -int(unix.EMFILE)
	EMLINK          = -int(unix.EMLINK)
	EMSGSIZE        = -int(unix.EMSGSIZE)
	ENAMETOOLONG    = -int(unix.ENAMETOOLONG)
	ENETDOWN        = -int(unix.ENETDOWN)
	ENETUNREACH     = -int(unix.ENETUNREACH)
	ENFILE          = -int(unix.ENFILE)
	ENOBUFS         = -int(unix.ENOBUFS)
	ENODEV          = -int(unix.ENODEV)
	ENOENT          = -int(unix.ENOENT)
	ENOMEM          = -int(unix.ENOMEM)
	ENOPROTOOPT     = -int(unix.ENOPROTOOPT)
	ENOSPC          = -int(unix.ENOSPC)
	ENOSYS          = -int(unix.ENOSYS)
	ENOTCONN        = -int(unix.ENOTCONN)
	ENOTDIR         = -int(unix.ENOTDIR)
	ENOTEMPTY       = -int(unix.ENOTEMPTY)
	ENOTSOCK        = -int(unix.ENOTSOCK)
	ENOTSUP         = -int(unix.ENOTSUP)
	ENOTTY          = -int(unix.ENOTTY)
	ENXIO           = -int(unix.ENXIO)
	EPERM           = -int(unix.EPERM)
	EPIPE           = -int(unix.EPIPE)
	EPROTO          = -int(unix.EPROTO)
	EPROTONOSUPPORT = -int(unix.EPROTONOSUPPORT)
	EPROTOTYPE      = -int(unix.EPROTOTYPE)
	ERANGE          = -int(unix.ERANGE)
	EROFS           = -int(unix.EROFS)
	ESHUTDOWN       = -int(unix.ESHUTDOWN)
	ESPIPE          = -int(unix.ESPIPE)
	ESRCH           = -int(unix.ESRCH)
	ETIMEDOUT       = -int(unix.ETIMEDOUT)
	ETXTBSY         = -int(unix.ETXTBSY)
	EXDEV           = -int(unix.EXDEV)

	EAI_ADDRFAMILY = -3000
	EAI_AGAIN      = -3001
	EAI_BADFLAGS   = -3002
	EAI_CANCELED   = -3003
	EAI_FAIL       = -3004
	EAI_FAMILY     = -3005
	EAI_MEMORY     = -3006
	EAI_NODATA     = -3007
	EAI_NONAME     = -3008
	EAI_OVERFLOW   = -3009
	EAI_SERVICE    = -3010
	EAI_SOCKTYPE   = -3011
	EAI_BADHINTS   = -3013
	EAI_PROTOCOL   = -3014

	ECHARSET = -4080
	UNKNOWN  = -4094
	EOF      = -4095
)

type errnoEntry struct {
	name string
	msg  string
}

var errnoTable = map[int]errnoEntry{
	E2BIG:           {"E2BIG", "argument list too long"},
	EACCES:          {"EACCES", "permission denied"},
	EADDRINUSE:      {"EADDRINUSE", "address already in use"},
	EADDRNOTAVAIL:   {"EADDRNOTAVAIL", "address not available"},
	EAFNOSUPPORT:    {"EAFNOSUPPORT", "address family not supported"},
	EAGAIN:          {"EAGAIN", "resource temporarily unavailable"},
	EAI_ADDRFAMILY:  {"EAI_ADDRFAMILY", "address family not supported"},
	EAI_AGAIN:       {"EAI_AGAIN", "temporary failure"},
	EAI_BADFLAGS:    {"EAI_BADFLAGS", "bad ai_flags value"},
	EAI_BADHINTS:    {"EAI_BADHINTS", "invalid value for hints"},
	EAI_CANCELED:    {"EAI_CANCELED", "request canceled"},
	EAI_FAIL:        {"EAI_FAIL", "permanent failure"},
	EAI_FAMILY:      {"EAI_FAMILY", "ai_family not supported"},
	EAI_MEMORY:      {"EAI_MEMORY", "out of memory"},
	EAI_NODATA:      {"EAI_NODATA", "no address"},
	EAI_NONAME:      {"EAI_NONAME", "unknown node or service"},
	EAI_OVERFLOW:    {"EAI_OVERFLOW", "argument buffer overflow"},
	EAI_PROTOCOL:    {"EAI_PROTOCOL", "resolved protocol is unknown"},
	EAI_SERVICE:     {"EAI_SERVICE", "service not available for socket type"},
	EAI_SOCKTYPE:    {"EAI_SOCKTYPE", "socket type not supported"},
	EALREADY:        {"EALREADY", "connection already in progress"},
	EBADF:           {"EBADF", "bad file descriptor"},
	EBUSY:           {"EBUSY", "resource busy or locked"},
	ECANCELED:       {"ECANCELED", "operation canceled"},
	ECHARSET:        {"ECHARSET", "invalid Unicode character"},
	ECONNABORTED:    {"ECONNABORTED", "software caused connection abort"},
	ECONNREFUSED:    {"ECONNREFUSED", "connection refused"},
	ECONNRESET:      {"ECONNRESET", "connection reset by peer"},
	EDESTADDRREQ:    {"EDESTADDRREQ", "destination address required"},
	EEXIST:          {"EEXIST", "file already exists"},
	EFAULT:          {"EFAULT", "bad address in system call argument"},
	EFBIG:           {"EFBIG", "file too large"},
	EFTYPE:          {"EFTYPE", "inappropriate file type or format"},
	EHOSTDOWN:       {"EHOSTDOWN", "host is down"},
	EHOSTUNREACH:    {"EHOSTUNREACH", "host is unreachable"},
	EILSEQ:          {"EILSEQ", "illegal byte sequence"},
	EINTR:           {"EINTR", "interrupted system call"},
	EINVAL:          {"EINVAL", "invalid argument"},
	EIO:             {"EIO", "i/o error"},
	EISCONN:         {"EISCONN", "socket is already connected"},
	EISDIR:          {"EISDIR", "illegal operation on a directory"},
	ELOOP:           {"ELOOP", "too many symbolic links encountered"},
	EMFILE:          {"EMFILE", "too many open files"},
	EMLINK:          {"EMLINK", "too many links"},
	EMSGSIZE:        {"EMSGSIZE", "message too long"},
	ENAMETOOLONG:    {"ENAMETOOLONG", "name too long"},
	ENETDOWN:        {"ENETDOWN", "network is down"},
	ENETUNREACH:     {"ENETUNREACH", "network is unreachable"},
	ENFILE:          {"ENFILE", "file table overflow"},
	ENOBUFS:         {"ENOBUFS", "no buffer space available"},
	ENODEV:          {"ENODEV", "no such device"},
	ENOENT:          {"ENOENT", "no such file or directory"},
	ENOMEM:          {"ENOMEM", "not enough memory"},
	ENONET:          {"ENONET", "machine is not on the network"},
	ENOPROTOOPT:     {"ENOPROTOOPT", "protocol not available"},
	ENOSPC:          {"ENOSPC", "no space left on device"},
	ENOSYS:          {"ENOSYS", "function not implemented"},
	ENOTCONN:        {"ENOTCONN", "socket is not connected"},
	ENOTDIR:         {"ENOTDIR", "not a directory"},
	ENOTEMPTY:       {"ENOTEMPTY", "directory not empty"},
	ENOTSOCK:        {"ENOTSOCK", "socket operation on non-socket"},
	ENOTSUP:         {"ENOTSUP", "operation not supported on socket"},
	ENOTTY:          {"ENOTTY", "inappropriate ioctl for device"},
	ENXIO:           {"ENXIO", "no such device or address"},
	EOF:             {"EOF", "end of file"},
	EPERM:           {"EPERM", "operation not permitted"},
	EPIPE:           {"EPIPE", "broken pipe"},
	EPROTO:          {"EPROTO", "protocol error"},
	EPROTONOSUPPORT: {"EPROTONOSUPPORT", "protocol not supported"},
	EPROTOTYPE:      {"EPROTOTYPE", "protocol wrong type for socket"},
	ERANGE:          {"ERANGE", "result too large"},
	EREMOTEIO:       {"EREMOTEIO", "remote I/O error"},
	EROFS:           {"EROFS", "read-only file system"},
	ESHUTDOWN:       {"ESHUTDOWN", "cannot send after transport endpoint shutdown"},
	ESPIPE:          {"ESPIPE", "invalid seek"},
	ESRCH:           {"ESRCH", "no such process"},
	ETIMEDOUT:       {"ETIMEDOUT", "connection timed out"},
	ETXTBSY:         {"ETXTBSY", "text file is busy"},
	EXDEV:           {"EXDEV", "cross-device link not permitted"},
	UNKNOWN:         {"UNKNOWN", "unknown error"},
}

// ErrName returns the short symbolic name of code.
func ErrName(code int) string {
	if e, ok := errnoTable[code]; ok {
		return e.name
	}
	return fmt.Sprintf("Unknown system error %d", code)
}

// StrError returns the descriptive message of code.
func StrError(code int) string {
	if e, ok := errnoTable[code]; ok {
		return e.msg
	}
	return fmt.Sprintf("Unknown system error %d", code)
}

// Known reports whether code is part of the closed set of error codes.
func Known(code int) bool {
	_, ok := errnoTable[code]
	return ok
}

// Codes returns every known error code, in no particular order.
func Codes() []int {
	codes := make([]int, 0, len(errnoTable))
	for code := range errnoTable {
		codes = append(codes, code)
	}
	return codes
}

// Translate maps a Go error to an error code. A nil error maps to 0.
func Translate(err error) int {
	if err == nil {
		return 0
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == 0 {
			return 0
		}
		return translateErrno(errno)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return EAI_NONAME
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return EAI_AGAIN
		default:
			return EAI_FAIL
		}
	}

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return EOF
	case errors.Is(err, context.Canceled):
		return ECANCELED
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ETIMEDOUT
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrExist):
		return EEXIST
	case errors.Is(err, fs.ErrPermission):
		return EACCES
	case errors.Is(err, fs.ErrClosed), errors.Is(err, net.ErrClosed):
		return EBADF
	case errors.Is(err, fs.ErrInvalid):
		return EINVAL
	}

	return UNKNOWN
}

func translateErrno(errno syscall.Errno) int {
	code := -int(errno)
	if code == -int(unix.EWOULDBLOCK) {
		return EAGAIN
	}
	if code == -int(unix.EOPNOTSUPP) {
		return ENOTSUP
	}
	return code
}
