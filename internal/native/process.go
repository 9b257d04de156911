// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Stdio container flags.
const (
	StdioIgnore        = 0x00
	StdioCreatePipe    = 0x01
	StdioInheritFd     = 0x02
	StdioInheritStream = 0x04
	StdioReadablePipe  = 0x10
	StdioWritablePipe  = 0x20
	StdioNonblockPipe  = 0x40
)

// Process flags.
const (
	ProcessSetUID                   = 1 << 0
	ProcessSetGID                   = 1 << 1
	ProcessWindowsVerbatimArguments = 1 << 2
	ProcessDetached                 = 1 << 3
	ProcessWindowsHide              = 1 << 4
	ProcessWindowsHideConsole       = 1 << 5
	ProcessWindowsHideGUI           = 1 << 6
)

// ExitCb receives the exit status, and the terminating signal or 0.
type ExitCb func(p *Process, exitStatus int64, termSignal int)

// StdioContainer configures one descriptor of the child.
type StdioContainer struct {
	Flags int
	// Stream is the pipe to create, or the stream to inherit.
	Stream *Stream
	// Fd is the descriptor to inherit.
	Fd int
}

// ProcessOptions configure [Loop.Spawn].
type ProcessOptions struct {
	ExitCb ExitCb
	File   string
	Args   []string
	// Env defaults to the parent's environment when nil.
	Env   []string
	Cwd   string
	Flags uint
	Stdio []StdioContainer
	UID   uint32
	GID   uint32
}

// Process is a spawned child process.
type Process struct {
	Handle
	exitCb ExitCb
	pid    int
}

// Pid returns the child's process id.
func (p *Process) Pid() int { return p.pid }

// Spawn starts a child process. The handle is initialized even when it
// fails and must be closed.
func (l *Loop) Spawn(p *Process, opts *ProcessOptions) int {
	l.handleInit(&p.Handle, ProcessHandle, p)
	p.exitCb = nil
	p.pid = 0

	if opts == nil || opts.File == "" {
		return EINVAL
	}
	if opts.Flags&^(ProcessSetUID|ProcessSetGID|ProcessWindowsVerbatimArguments|
		ProcessDetached|ProcessWindowsHide|ProcessWindowsHideConsole|ProcessWindowsHideGUI) != 0 {
		return EINVAL
	}

	n := len(opts.Stdio)
	if n < 3 {
		n = 3
	}
	files := make([]uintptr, n)
	var parentEnds []int
	var toClose []int
	cleanup := func() {
		for _, fd := range toClose {
			_ = closeFD(fd)
		}
		for _, fd := range parentEnds {
			_ = closeFD(fd)
		}
	}
	parentFor := make([]int, n)

	for i := 0; i < n; i++ {
		parentFor[i] = -1
		var c StdioContainer
		if i < len(opts.Stdio) {
			c = opts.Stdio[i]
		}
		switch c.Flags & (StdioCreatePipe | StdioInheritFd | StdioInheritStream) {
		case StdioIgnore:
			if i > 2 {
				files[i] = ^uintptr(0)
				continue
			}
			fd, err := unix.Open(os.DevNull, unix.O_RDWR|unix.O_CLOEXEC, 0)
			if err != nil {
				cleanup()
				return Translate(err)
			}
			toClose = append(toClose, fd)
			files[i] = uintptr(fd)
		case StdioCreatePipe:
			if c.Stream == nil || c.Stream.typ != NamedPipeHandle || c.Stream.io.fd != -1 {
				cleanup()
				return EINVAL
			}
			fds, err := socketpair(unix.SOCK_STREAM)
			if err != nil {
				cleanup()
				return Translate(err)
			}
			parentEnds = append(parentEnds, fds[0])
			toClose = append(toClose, fds[1])
			parentFor[i] = fds[0]
			files[i] = uintptr(fds[1])
		case StdioInheritFd:
			files[i] = uintptr(c.Fd)
		case StdioInheritStream:
			if c.Stream == nil || c.Stream.io.fd < 0 {
				cleanup()
				return EINVAL
			}
			files[i] = uintptr(c.Stream.io.fd)
		default:
			cleanup()
			return EINVAL
		}
	}

	path := opts.File
	if !strings.Contains(path, "/") {
		resolved, err := exec.LookPath(path)
		if err != nil {
			cleanup()
			return ENOENT
		}
		path = resolved
	}

	args := opts.Args
	if len(args) == 0 {
		args = []string{opts.File}
	}
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}

	sys := &syscall.SysProcAttr{Setsid: opts.Flags&ProcessDetached != 0}
	if opts.Flags&(ProcessSetUID|ProcessSetGID) != 0 {
		cred := &syscall.Credential{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
		if opts.Flags&ProcessSetUID != 0 {
			cred.Uid = opts.UID
		}
		if opts.Flags&ProcessSetGID != 0 {
			cred.Gid = opts.GID
		}
		sys.Credential = cred
	}

	pid, err := syscall.ForkExec(path, args, &syscall.ProcAttr{
		Dir:   opts.Cwd,
		Env:   env,
		Files: files,
		Sys:   sys,
	})
	if err != nil {
		cleanup()
		return Translate(err)
	}

	for _, fd := range toClose {
		_ = closeFD(fd)
	}
	for i, fd := range parentFor {
		if fd == -1 {
			continue
		}
		c := opts.Stdio[i]
		var flags streamFlags
		if c.Flags&StdioWritablePipe != 0 {
			flags |= streamReadable
		}
		if c.Flags&StdioReadablePipe != 0 {
			flags |= streamWritable
		}
		_ = setCloexecNonblock(fd)
		c.Stream.open(fd, flags)
	}

	p.pid = pid
	p.exitCb = opts.ExitCb
	p.start()

	l.Logger.Debug().
		Int("pid", pid).
		Str("file", path).
		Log("native: spawned process")

	go waitProcess(l, p, pid)
	return 0
}

func waitProcess(l *Loop, p *Process, pid int) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}
		break
	}

	var status int64
	var sig int
	if ws.Signaled() {
		sig = int(ws.Signal())
	} else {
		status = int64(ws.ExitStatus())
	}
	l.post(func() { p.exited(pid, status, sig) })
}

func (p *Process) exited(pid int, status int64, sig int) {
	if p.pid != pid || p.IsClosing() {
		return
	}
	p.stop()
	if p.exitCb != nil {
		p.exitCb(p, status, sig)
	}
}

// Kill sends signum to the process.
func (p *Process) Kill(signum int) int {
	return KillPid(p.pid, signum)
}

func (p *Process) close() {
	p.stop()
}

// KillPid sends signum to pid.
func KillPid(pid, signum int) int {
	if err := unix.Kill(pid, unix.Signal(signum)); err != nil {
		return Translate(err)
	}
	return 0
}

var disableStdioInheritance sync.Once

// DisableStdioInheritance marks the inherited descriptors close-on-exec, so
// that children spawned later don't hold on to them.
func DisableStdioInheritance() {
	disableStdioInheritance.Do(func() {
		for fd := 0; ; fd++ {
			_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
			if err == unix.EBADF && fd > 15 {
				return
			}
			if err == nil {
				unix.CloseOnExec(fd)
			}
		}
	})
}
