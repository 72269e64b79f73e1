// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for dnoscheck.
//
// This package implements the Cobra command hierarchy for the dnoscheck CLI:
// the root command, the check command that drives the PMTU regression check
// against the testbed, and the config and docs utility commands.
package cmd
