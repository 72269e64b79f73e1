// SPDX-License-Identifier: MPL-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package dnos

import "errors"

// SpawnPTY requires a unix pty; spawn command overrides are unavailable on
// other platforms. Direct SSH connections work everywhere.
func SpawnPTY(string) (Transport, error) {
	return nil, errors.New("spawn command transport requires a unix pty")
}
