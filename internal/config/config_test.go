// SPDX-License-Identifier: MPL-2.0

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dnoscheck/internal/config"
)

func isolateConfigDir(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolateConfigDir(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("Load() without a config file differs from defaults (-want +got):\n%s", diff)
	}
	// The original lab procedure cleared the BGP neighbors unless told not to.
	if !cfg.Check.ClearBGPNeighbors {
		t.Error("ClearBGPNeighbors default = false, want true")
	}
}

func TestLoadFromFile(t *testing.T) {
	isolateConfigDir(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[testbed]
client_host = "lab-client"
server_ip = "10.0.0.2"

[check]
himtu = 9000
steady_sleep = "1s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("LoadWithOptions() error: %v", err)
	}
	if cfg.Testbed.ClientHost != "lab-client" {
		t.Errorf("ClientHost = %q, want %q", cfg.Testbed.ClientHost, "lab-client")
	}
	if cfg.Testbed.ServerIP != "10.0.0.2" {
		t.Errorf("ServerIP = %q, want %q", cfg.Testbed.ServerIP, "10.0.0.2")
	}
	if cfg.Check.HiMTU != 9000 {
		t.Errorf("HiMTU = %d, want 9000", cfg.Check.HiMTU)
	}
	if cfg.Check.SteadySleep != "1s" {
		t.Errorf("SteadySleep = %q, want %q", cfg.Check.SteadySleep, "1s")
	}
	// Untouched keys keep their defaults.
	if cfg.Testbed.MiddleHost != config.Default().Testbed.MiddleHost {
		t.Errorf("MiddleHost = %q, want default", cfg.Testbed.MiddleHost)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateConfigDir(t)

	_, err := config.LoadWithOptions(config.LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml"),
	})
	if err == nil {
		t.Fatal("LoadWithOptions() succeeded with a missing explicit config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolateConfigDir(t)
	t.Setenv("DNOSCHECK_SSH_USER", "labops")
	t.Setenv("DNOSCHECK_CHECK_HIMTU", "9216")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SSH.User != "labops" {
		t.Errorf("SSH.User = %q, want %q", cfg.SSH.User, "labops")
	}
	if cfg.Check.HiMTU != 9216 {
		t.Errorf("Check.HiMTU = %d, want 9216", cfg.Check.HiMTU)
	}
}

func TestLoadSchemaViolation(t *testing.T) {
	isolateConfigDir(t)

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "port out of range",
			content: "[ssh]\nport = 70000\n",
		},
		{
			name:    "mtu below floor",
			content: "[check]\nhimtu = 10\n",
		},
		{
			name:    "bad duration",
			content: "[check]\nsteady_sleep = \"three seconds\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("LoadWithOptions() accepted an invalid config")
			}
		})
	}
}

func TestLoadCrossFieldValidation(t *testing.T) {
	isolateConfigDir(t)

	tests := []struct {
		name    string
		content string
	}{
		{
			// Both MTUs are individually legal, but inverted.
			name:    "lomtu above himtu",
			content: "[check]\nhimtu = 2000\nlomtu = 9100\n",
		},
		{
			// No spawn overrides, so SSH needs the password file.
			name:    "missing password file",
			content: "[ssh]\npassword_file = \"\"\n",
		},
		{
			name:    "blank host",
			content: "[testbed]\nmiddle_host = \" \"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: path}); err == nil {
				t.Fatal("LoadWithOptions() accepted an inconsistent config")
			}
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	isolateConfigDir(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("LoadWithOptions() on written default: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("written default config does not round-trip (-want +got):\n%s", diff)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("# mine"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := config.WriteDefault(path); err == nil {
		t.Fatal("WriteDefault() overwrote an existing file")
	}
}

func TestRenderContainsAllSections(t *testing.T) {
	t.Parallel()

	out, err := config.Render(config.Default())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, section := range []string{"[testbed]", "[ssh]", "[check]"} {
		if !strings.Contains(out, section) {
			t.Errorf("Render() output missing %s:\n%s", section, out)
		}
	}
}

func TestDurationParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		d       config.Duration
		wantErr bool
	}{
		{name: "seconds", d: "30s"},
		{name: "compound", d: "1m30s"},
		{name: "millis", d: "250ms"},
		{name: "empty", d: "", wantErr: true},
		{name: "words", d: "three seconds", wantErr: true},
		{name: "bare number", d: "30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.d.Parse()
			if (err != nil) != tt.wantErr {
				t.Errorf("Duration(%q).Parse() error = %v, wantErr %v", tt.d, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, config.ErrInvalidDuration) {
				t.Errorf("Duration(%q).Parse() error does not wrap ErrInvalidDuration", tt.d)
			}
		})
	}
}
