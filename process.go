// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package uv

import (
	"github.com/joeycumines/go-uv/internal/native"
)

// StdioFlags configure one descriptor of a child process.
type StdioFlags int

const (
	StdioIgnore        = StdioFlags(native.StdioIgnore)
	StdioCreatePipe    = StdioFlags(native.StdioCreatePipe)
	StdioInheritFd     = StdioFlags(native.StdioInheritFd)
	StdioInheritStream = StdioFlags(native.StdioInheritStream)
	// StdioReadablePipe and StdioWritablePipe are from the child's point of
	// view.
	StdioReadablePipe = StdioFlags(native.StdioReadablePipe)
	StdioWritablePipe = StdioFlags(native.StdioWritablePipe)
	StdioNonblockPipe = StdioFlags(native.StdioNonblockPipe)
)

// ProcessFlags modify how a child is spawned.
type ProcessFlags uint

const (
	ProcessSetUID                   = ProcessFlags(native.ProcessSetUID)
	ProcessSetGID                   = ProcessFlags(native.ProcessSetGID)
	ProcessWindowsVerbatimArguments = ProcessFlags(native.ProcessWindowsVerbatimArguments)
	ProcessDetached                 = ProcessFlags(native.ProcessDetached)
	ProcessWindowsHide              = ProcessFlags(native.ProcessWindowsHide)
	ProcessWindowsHideConsole       = ProcessFlags(native.ProcessWindowsHideConsole)
	ProcessWindowsHideGUI           = ProcessFlags(native.ProcessWindowsHideGUI)
)

// ExitCb runs once the child exited, termSignal being the signal that
// terminated it or 0.
type ExitCb func(p Process, exitStatus int64, termSignal int)

// StdioContainer configures the child descriptor at its index in
// [ProcessOptions.Stdio].
type StdioContainer struct {
	Flags StdioFlags
	// Stream is the unopened pipe for [StdioCreatePipe], or the stream to
	// share for [StdioInheritStream].
	Stream Stream
	// Fd is the parent descriptor for [StdioInheritFd].
	Fd int
}

// ProcessOptions configure [Loop.SpawnProcess].
type ProcessOptions struct {
	ExitCb ExitCb
	// File is the program, looked up in PATH unless it contains a slash.
	File string
	// Args includes the program name as Args[0], defaulting to File.
	Args []string
	// Env is inherited from the parent when nil.
	Env   []string
	Cwd   string
	Flags ProcessFlags
	// Stdio entries past the end are treated as [StdioIgnore] for the first
	// three descriptors.
	Stdio []StdioContainer
	UID   uint32
	GID   uint32
}

type processData struct {
	exitCb slot[ExitCb]
}

// Process is a spawned child process.
// The zero value is invalid.
type Process struct {
	p *native.Process
}

func exitTrampoline(p *native.Process, exitStatus int64, termSignal int) {
	d, ok := addlOf[*processData](&p.Handle)
	if !ok {
		return
	}
	if cb, ok := d.exitCb.get(); ok {
		loopOf(p.Loop()).safeCall("exit", func() { cb(Process{p: p}, exitStatus, termSignal) })
	}
}

// SpawnProcess starts a child process. If spawning fails the handle is
// closed before returning the error, so nothing is left to clean up.
func (l *Loop) SpawnProcess(opts ProcessOptions) (Process, error) {
	n, err := l.live()
	if err != nil {
		return Process{}, err
	}
	stdio := make([]native.StdioContainer, len(opts.Stdio))
	for i, c := range opts.Stdio {
		if c.Stream.s != nil {
			if _, err := c.Stream.data(); err != nil {
				return Process{}, err
			}
		}
		stdio[i] = native.StdioContainer{Flags: int(c.Flags), Stream: c.Stream.s, Fd: c.Fd}
	}
	d := &processData{exitCb: newSlot(opts.ExitCb)}
	p := new(native.Process)
	code := n.Spawn(p, &native.ProcessOptions{
		ExitCb: trampoline(&d.exitCb, exitTrampoline),
		File:   opts.File,
		Args:   opts.Args,
		Env:    opts.Env,
		Cwd:    opts.Cwd,
		Flags:  uint(opts.Flags),
		Stdio:  stdio,
		UID:    opts.UID,
		GID:    opts.GID,
	})
	initHandle(&p.Handle, d)
	if code != 0 {
		Process{p: p}.Close(nil)
		return Process{}, errOf(code)
	}
	return Process{p: p}, nil
}

// Handle upcasts p.
func (p Process) Handle() Handle { return Handle{h: &p.p.Handle} }

// Close is shorthand for Handle().Close(cb). Closing does not kill the
// child.
func (p Process) Close(cb CloseCb) { p.Handle().Close(cb) }

// Pid returns the child's process id.
func (p Process) Pid() int { return p.p.Pid() }

// Kill sends signum to the child.
func (p Process) Kill(signum int) error {
	if _, err := liveAddl[*processData](&p.p.Handle); err != nil {
		return err
	}
	return errOf(p.p.Kill(signum))
}

// KillPid sends signum to an arbitrary process.
func KillPid(pid, signum int) error { return errOf(native.KillPid(pid, signum)) }

// DisableStdioInheritance marks the descriptors inherited by this process
// close-on-exec, so later children don't hold on to them. Only the first
// call has an effect.
func DisableStdioInheritance() { native.DisableStdioInheritance() }
