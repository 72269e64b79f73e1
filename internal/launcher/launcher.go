// SPDX-License-Identifier: MPL-2.0

// Package launcher builds and hands off the fixed tox invocation used to run
// the regression suite from any working directory. The launcher contributes
// nothing of its own: it resolves the directory containing its executable,
// points tox at the tox.ini living there, and forwards the caller's arguments
// verbatim to the `run` environment.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	// runnerName is the external runner executable looked up on PATH.
	runnerName = "tox"
	// envName is the tox environment the launcher always selects.
	envName = "run"

	configFlag   = "-c"
	envFlag      = "-e"
	argSeparator = "--"

	// CodeLaunchFailure is the exit code used when the runner could not be
	// invoked at all, following the shell "command not found" convention.
	// A runner that starts and fails reports its own code instead.
	CodeLaunchFailure = 127
)

// ErrLaunch is the sentinel error wrapped by LaunchError.
var ErrLaunch = errors.New("launch failure")

// ErrReplaceUnsupported is returned by Replace on platforms without
// process-replacement semantics. Callers fall back to Spawn.
var ErrReplaceUnsupported = errors.New("process replacement not supported on this platform")

type (
	// Invocation is a fully resolved hand-off to the external runner:
	// the executable to run and its complete argv, argv[0] included.
	// It is constructed once at startup and never mutated.
	Invocation struct {
		Runner string
		Args   []string
	}

	// LaunchError reports that the runner could not be invoked: the self
	// directory was unresolvable or the runner executable was missing or
	// not startable. It never wraps a runner's own non-zero exit.
	LaunchError struct {
		Stage string
		Cause error
	}
)

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

// Unwrap returns ErrLaunch and the cause, so callers can both detect launch
// failures with errors.Is and still reach the underlying error.
func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Cause} }

// Resolve builds the Invocation for the current process: the self directory
// is resolved from the running executable (not the working directory), the
// runner is located on PATH, and the caller-supplied arguments are appended
// after the fixed flags, unmodified and in order.
func Resolve(callerArgs []string) (Invocation, error) {
	dir, err := SelfDir()
	if err != nil {
		return Invocation{}, &LaunchError{Stage: "resolve self directory", Cause: err}
	}
	runner, err := exec.LookPath(runnerName)
	if err != nil {
		return Invocation{}, &LaunchError{Stage: "locate " + runnerName, Cause: err}
	}
	return Invocation{Runner: runner, Args: buildArgs(dir, callerArgs)}, nil
}

// SelfDir returns the absolute, symlink-resolved directory containing the
// running executable. Invoking the program through a relative path or a
// symlink chain yields the directory of the real file.
func SelfDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return resolveDir(exe)
}

// resolveDir resolves path to its real location and returns its directory.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Dir(real), nil
}

// buildArgs assembles the runner argv: the two fixed flags selecting the
// configuration directory and environment, then the separator, then the
// caller's arguments exactly as received.
func buildArgs(selfDir string, callerArgs []string) []string {
	args := make([]string, 0, 6+len(callerArgs))
	args = append(args, runnerName, configFlag, selfDir, envFlag, envName, argSeparator)
	return append(args, callerArgs...)
}
