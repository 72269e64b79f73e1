// SPDX-License-Identifier: MPL-2.0

// Command run launches the tox `run` environment from the directory this
// binary is installed in, regardless of the caller's working directory, and
// forwards every argument to it unchanged.
package main

import (
	"errors"
	"fmt"
	"os"

	"dnoscheck/internal/launcher"
)

func main() {
	inv, err := launcher.Resolve(os.Args[1:])
	if err != nil {
		fail(err)
	}

	err = launcher.Replace(inv)
	if errors.Is(err, launcher.ErrReplaceUnsupported) {
		code, spawnErr := launcher.Spawn(inv)
		if spawnErr != nil {
			fail(spawnErr)
		}
		os.Exit(code)
	}
	// Replace only returns on failure.
	fail(err)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "run: %v\n", err)
	os.Exit(launcher.CodeLaunchFailure)
}
