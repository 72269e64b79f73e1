// SPDX-License-Identifier: MPL-2.0

//go:build darwin || freebsd || netbsd || openbsd

package dnos

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)
