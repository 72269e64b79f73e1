// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package launcher

import "os"

var forwardedSignals = []os.Signal{os.Interrupt}

func exitStatus(state *os.ProcessState) int {
	return state.ExitCode()
}
