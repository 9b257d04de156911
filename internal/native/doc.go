// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package native is the callback based event loop that package uv binds.
//
// It follows the shape of a C event loop library: every structure carries a
// single opaque Data slot, every callback receives raw values (negative
// integer status codes, socket addresses, buffer records), and handle or
// request memory is owned by the caller. All operations other than
// [Async.Send] and [Cancel] must happen on the goroutine that calls
// [Loop.Run].
//
// Readiness is driven by epoll on Linux and kqueue on Darwin. Blocking work
// (filesystem operations, name resolution, random bytes, user work) runs on a
// process wide pool of goroutines and completes back on the loop.
package native
