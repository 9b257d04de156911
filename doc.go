// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package uv provides a typed, callback based event loop in the style of
// libuv: handles (long lived registrations such as timers, sockets and
// signal watchers) and requests (one shot operations such as writes,
// filesystem calls and DNS lookups) bound to a [Loop].
//
// # Model
//
// A [Loop] is created with [NewLoop] or [DefaultLoop], handles and requests
// are constructed from it, callbacks are installed, then [Loop.Run] drives
// everything until no referenced work remains. Every callback runs on the
// goroutine that is inside [Loop.Run].
//
// Handles are small value types wrapping a native handle. Each one carries
// a side data block holding the user callbacks, which is released by the
// close callback trampoline once [Handle.Close] completes. Every handle must
// be closed before its loop is closed, [Loop.Close] fails with [EBUSY]
// otherwise.
//
// Requests are released automatically once their completion callback has
// run. Requests issued without a callback are left to the garbage
// collector. Filesystem, DNS and random requests also have *Sync variants
// that complete before returning.
//
// The zero value of a handle or request type is invalid, except that
// [Timer] and [Stream] treat it as closed.
//
// # Conversions
//
// Upcasts are infallible methods, e.g. [TCP.Stream] and [Stream.Handle].
// Downcasts check the native kind and fail with a [*ConversionError], e.g.
// [Handle.AsTimer] or [Stream.AsTCP].
//
// # Callbacks
//
// Callback arguments follow one convention: the object first, then any
// payload, then the status as an error, which is nil on success and an
// [Error] otherwise. Panics raised by callbacks are recovered and logged,
// see [WithLogger].
//
// # Buffers
//
// [Buf] owns its bytes, [ReadonlyBuf] is a borrowed view of the same
// record. Write requests own their list of buffer records, never the bytes
// described by them, which must stay valid until the write completes.
//
// # Thread Safety
//
// Only [Async.Send] and [Req.Cancel] may be called from goroutines other
// than the one running the loop. The [DefaultLoop] is not safe for
// concurrent use.
package uv
