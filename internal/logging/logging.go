// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process-wide structured logger.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. verbosity counts -v flags: 0 keeps the
// default Info level, 1 or more enables Debug. quiet wins over verbosity and
// suppresses everything below Error.
func New(w io.Writer, verbosity int, quiet bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "dnoscheck",
		ReportTimestamp: true,
	})
	switch {
	case quiet:
		logger.SetLevel(log.ErrorLevel)
	case verbosity > 0:
		logger.SetLevel(log.DebugLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
