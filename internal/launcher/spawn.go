// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
)

// Spawn runs the runner as a child process: the faithful equivalent of
// Replace where process replacement is unavailable. Standard streams are
// inherited, termination signals received while the child runs are forwarded
// to it, and the child's exact exit status is returned. A child killed by a
// signal is reported as 128 plus the signal number, matching shell behavior.
func Spawn(inv Invocation) (int, error) {
	cmd := exec.Command(inv.Runner, inv.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return CodeLaunchFailure, &LaunchError{Stage: "start " + inv.Runner, Cause: err}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, forwardedSignals...)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				// Best effort: the child may already be gone.
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitStatus(exitErr.ProcessState), nil
	}
	return CodeLaunchFailure, &LaunchError{Stage: "wait for " + inv.Runner, Cause: err}
}
