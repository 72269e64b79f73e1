// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		err := FormatError(nil, "test.cue")
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with filepath", func(t *testing.T) {
		t.Parallel()

		originalErr := errors.New("some error")
		err := FormatError(originalErr, "test.cue")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "test.cue") {
			t.Errorf("error should contain filepath, got: %v", err)
		}
		if !strings.Contains(err.Error(), "some error") {
			t.Errorf("error should contain original message, got: %v", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{
			name:     "empty path",
			path:     []string{},
			expected: "",
		},
		{
			name:     "single element",
			path:     []string{"name"},
			expected: "name",
		},
		{
			name:     "nested path",
			path:     []string{"check", "himtu"},
			expected: "check.himtu",
		},
		{
			name:     "array index",
			path:     []string{"phases", "0", "timeout"},
			expected: "phases[0].timeout",
		},
		{
			name:     "multiple array indices",
			path:     []string{"phases", "0", "steps", "2", "timeout"},
			expected: "phases[0].steps[2].timeout",
		},
		{
			name:     "nested arrays",
			path:     []string{"items", "0", "values", "1"},
			expected: "items[0].values[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := formatPath(tt.path)
			if result != tt.expected {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("Error with path", func(t *testing.T) {
		t.Parallel()

		err := &ValidationError{
			FilePath: "config.cue",
			CUEPath:  "check.himtu",
			Message:  "expected string, got int",
		}
		expected := "config.cue: check.himtu: expected string, got int"
		if err.Error() != expected {
			t.Errorf("got %q, want %q", err.Error(), expected)
		}
	})

	t.Run("Error without path", func(t *testing.T) {
		t.Parallel()

		err := &ValidationError{
			FilePath: "config.cue",
			CUEPath:  "",
			Message:  "syntax error",
		}
		expected := "config.cue: syntax error"
		if err.Error() != expected {
			t.Errorf("got %q, want %q", err.Error(), expected)
		}
	})

	t.Run("Unwrap returns nil", func(t *testing.T) {
		t.Parallel()

		err := &ValidationError{
			FilePath: "config.cue",
			Message:  "some error",
		}
		if err.Unwrap() != nil {
			t.Error("Unwrap should return nil")
		}
	})

	t.Run("Suggestion field", func(t *testing.T) {
		t.Parallel()

		err := &ValidationError{
			FilePath:   "config.toml",
			CUEPath:    "check.steady_sleep",
			Message:    "invalid duration",
			Suggestion: "write durations with a unit, like \"30s\"",
		}
		// Suggestion is stored but not included in Error() output
		if err.Suggestion == "" {
			t.Error("Suggestion should not be empty")
		}
	})
}
