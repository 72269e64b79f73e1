// SPDX-License-Identifier: MPL-2.0

//go:build unix

package launcher

import (
	"os"

	"golang.org/x/sys/unix"
)

// Replace hands the process over to the runner via execve. On success the
// launcher's code never resumes: the runner inherits the process ID, the
// standard streams, and signal delivery, and its exit status is observed
// directly by whoever started the launcher.
func Replace(inv Invocation) error {
	if err := unix.Exec(inv.Runner, inv.Args, os.Environ()); err != nil {
		return &LaunchError{Stage: "exec " + inv.Runner, Cause: err}
	}
	// Unreachable: Exec only returns on failure.
	return nil
}
