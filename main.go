// SPDX-License-Identifier: MPL-2.0

package main

import cmd "dnoscheck/cmd/dnoscheck"

func main() {
	cmd.Execute()
}
