// SPDX-License-Identifier: MPL-2.0

//go:build unix

package launcher

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var forwardedSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP, unix.SIGQUIT}

// exitStatus maps a terminated child's wait status to a shell-style exit
// code: the plain exit status for normal exits, 128+signal for signal deaths.
func exitStatus(state *os.ProcessState) int {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
