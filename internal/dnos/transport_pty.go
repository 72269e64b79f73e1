// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd

package dnos

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"mvdan.cc/sh/v3/shell"
)

// ptyTransport runs a user-supplied spawn command (typically an ssh wrapper
// with site-specific hops) under a local pty.
type ptyTransport struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// SpawnPTY splits cmdline with shell word-splitting rules (environment
// variables expand, quoting is respected) and starts it under a pty with
// echo disabled, so sent commands appear in the output only once, echoed by
// the remote CLI.
func SpawnPTY(cmdline string) (Transport, error) {
	fields, err := shell.Fields(cmdline, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parsing spawn command %q: %w", cmdline, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty spawn command")
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyHeight, Cols: ptyWidth})
	if err != nil {
		return nil, fmt.Errorf("spawning %q: %w", cmdline, err)
	}
	if err := disableEcho(ptmx); err != nil {
		ptmx.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("configuring pty for %q: %w", cmdline, err)
	}
	return &ptyTransport{cmd: cmd, ptmx: ptmx}, nil
}

func (t *ptyTransport) Read(p []byte) (int, error)  { return t.ptmx.Read(p) }
func (t *ptyTransport) Write(p []byte) (int, error) { return t.ptmx.Write(p) }

// Close ends the spawned process and releases the pty.
func (t *ptyTransport) Close() error {
	err := t.ptmx.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_ = t.cmd.Wait()
	}
	return err
}

// disableEcho turns off input echo on the pty.
func disableEcho(f *os.File) error {
	tio, err := unix.IoctlGetTermios(int(f.Fd()), ioctlGetTermios)
	if err != nil {
		return err
	}
	tio.Lflag &^= unix.ECHO
	return unix.IoctlSetTermios(int(f.Fd()), ioctlSetTermios, tio)
}
