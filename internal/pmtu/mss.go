// SPDX-License-Identifier: MPL-2.0

package pmtu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoSession means the session table held no row for the watched BGP
	// peering. The session may simply not be established yet.
	ErrNoSession = errors.New("no matching bgp session")
	// ErrUnparsable is the sentinel error wrapped by ParseError.
	ErrUnparsable = errors.New("unparsable session table output")
)

// ParseError reports session table output the MSS could not be read from.
type ParseError struct {
	Output string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read mss from session table output %q", e.Output)
}

// Unwrap returns ErrUnparsable for errors.Is detection.
func (e *ParseError) Unwrap() error { return ErrUnparsable }

// ParseMSS extracts the negotiated MSS from a filtered `show system sessions`
// row. The MSS is the second-to-last pipe-separated column. Empty output
// means the session is not in the table (ErrNoSession).
func ParseMSS(output string) (int, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return 0, ErrNoSession
	}
	fields := strings.Split(output, "|")
	if len(fields) < 2 {
		return 0, &ParseError{Output: output}
	}
	mss, err := strconv.Atoi(strings.TrimSpace(fields[len(fields)-2]))
	if err != nil {
		return 0, &ParseError{Output: output}
	}
	return mss, nil
}
