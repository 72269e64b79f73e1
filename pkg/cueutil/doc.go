// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE error formatting utilities.
//
// CUE reports schema violations with flat path slices and messages that
// often repeat the path. FormatError flattens such an error into one line
// per violation with JSON-path notation (e.g. "check.himtu"), which is what
// the config loader surfaces to the user.
package cueutil
