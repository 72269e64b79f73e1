// SPDX-License-Identifier: MPL-2.0

package dnos

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrCLI is the sentinel error wrapped by CLIError.
	ErrCLI = errors.New("dnos cli error")
	// ErrExpectTimeout is the sentinel error wrapped by ExpectTimeoutError.
	ErrExpectTimeout = errors.New("expect timeout")
	// ErrClosed is returned when the transport ends before a pattern matches.
	ErrClosed = errors.New("session closed")
)

type (
	// CLIError reports an ERROR: diagnostic printed by the device CLI in
	// response to a command.
	CLIError struct {
		Session string
		Command string
		Output  string
	}

	// ExpectTimeoutError reports that none of the awaited patterns matched
	// before the wait expired. Buffered holds the unmatched output received
	// so far, for diagnostics.
	ExpectTimeoutError struct {
		Session  string
		Patterns []*regexp.Regexp
		Buffered string
	}
)

// Error implements the error interface.
func (e *CLIError) Error() string {
	return fmt.Sprintf("%s: CLI rejected %q: %s", e.Session, e.Command, e.Output)
}

// Unwrap returns ErrCLI so callers can detect CLI rejections with errors.Is.
func (e *CLIError) Unwrap() error { return ErrCLI }

// Error implements the error interface.
func (e *ExpectTimeoutError) Error() string {
	pats := make([]string, len(e.Patterns))
	for i, p := range e.Patterns {
		pats[i] = p.String()
	}
	return fmt.Sprintf("%s: timed out waiting for %v (buffered %q)", e.Session, pats, e.Buffered)
}

// Unwrap returns ErrExpectTimeout for errors.Is detection.
func (e *ExpectTimeoutError) Unwrap() error { return ErrExpectTimeout }
