// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

func shPath(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("sh not available: %v", err)
	}
	return sh
}

func TestSpawnMirrorsExitCode(t *testing.T) {
	t.Parallel()

	sh := shPath(t)
	for _, code := range []int{0, 1, 2, 127, 255} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			t.Parallel()
			inv := Invocation{
				Runner: sh,
				Args:   []string{"sh", "-c", "exit " + strconv.Itoa(code)},
			}
			got, err := Spawn(inv)
			if err != nil {
				t.Fatalf("Spawn() error: %v", err)
			}
			if got != code {
				t.Errorf("Spawn() exit code = %d, want %d", got, code)
			}
		})
	}
}

func TestSpawnMissingRunnerIsLaunchFailure(t *testing.T) {
	t.Parallel()

	inv := Invocation{
		Runner: filepath.Join(t.TempDir(), "no-such-runner"),
		Args:   []string{"no-such-runner"},
	}
	code, err := Spawn(inv)
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("Spawn() error = %v, want ErrLaunch", err)
	}
	if code != CodeLaunchFailure {
		t.Errorf("Spawn() exit code = %d, want %d", code, CodeLaunchFailure)
	}
}
