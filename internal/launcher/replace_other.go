// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package launcher

// Replace always fails on platforms without execve; callers fall back to
// Spawn, which mirrors the runner's exit status and forwards signals.
func Replace(Invocation) error {
	return ErrReplaceUnsupported
}
