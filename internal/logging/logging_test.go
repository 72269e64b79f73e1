// SPDX-License-Identifier: MPL-2.0

package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"dnoscheck/internal/logging"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbosity int
		quiet     bool
		wantDebug bool
		wantInfo  bool
	}{
		{name: "default", wantInfo: true},
		{name: "verbose", verbosity: 1, wantDebug: true, wantInfo: true},
		{name: "very verbose", verbosity: 3, wantDebug: true, wantInfo: true},
		{name: "quiet", quiet: true},
		{name: "quiet beats verbose", verbosity: 2, quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := logging.New(&buf, tt.verbosity, tt.quiet)
			logger.Debug("debug line")
			logger.Info("info line")
			logger.Error("error line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug emitted = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info emitted = %v, want %v", got, tt.wantInfo)
			}
			if !strings.Contains(out, "error line") {
				t.Error("error line suppressed")
			}
		})
	}
}
