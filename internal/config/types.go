// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dnoscheck/internal/pmtu"
	"dnoscheck/pkg/types"
)

var (
	// ErrInvalidDuration is the sentinel error for unparsable Duration values.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrMissingHost is returned when a testbed node has no hostname.
	ErrMissingHost = errors.New("missing testbed host")
	// ErrMissingInterface is returned when a required interface name is empty.
	ErrMissingInterface = errors.New("missing interface name")
	// ErrMissingServerIP is returned when the server IP filter is empty.
	ErrMissingServerIP = errors.New("missing server ip")
	// ErrInvalidPort is returned when the SSH port is out of range.
	ErrInvalidPort = errors.New("invalid ssh port")
)

type (
	// Duration is a human-readable duration string ("30s", "5m"). Keeping
	// the string form end to end lets the same value round-trip through
	// TOML, environment variables, and the CUE schema unchanged.
	Duration string

	// Testbed names the three routers and the links the check runs over.
	Testbed struct {
		// ClientHost, MiddleHost, ServerHost are the SSH targets for the
		// router at each position.
		ClientHost string `mapstructure:"client_host" toml:"client_host" json:"client_host"`
		MiddleHost string `mapstructure:"middle_host" toml:"middle_host" json:"middle_host"`
		ServerHost string `mapstructure:"server_host" toml:"server_host" json:"server_host"`

		// Interface names per position. MiddleServerInterface is the one
		// whose MTU the check flips.
		ClientInterface       string `mapstructure:"client_interface" toml:"client_interface" json:"client_interface"`
		MiddleClientInterface string `mapstructure:"middle_client_interface" toml:"middle_client_interface" json:"middle_client_interface"`
		MiddleServerInterface string `mapstructure:"middle_server_interface" toml:"middle_server_interface" json:"middle_server_interface"`
		ServerInterface       string `mapstructure:"server_interface" toml:"server_interface" json:"server_interface"`

		// ClientIP and ServerIP identify the BGP session under test in the
		// client's session table. ClientIP may be empty.
		ClientIP string `mapstructure:"client_ip" toml:"client_ip" json:"client_ip"`
		ServerIP string `mapstructure:"server_ip" toml:"server_ip" json:"server_ip"`

		// Spawn optionally replaces the direct SSH connection per node with
		// a command run under a local pty (for jump hosts or sshpass
		// wrappers). Empty means connect directly.
		Spawn SpawnOverrides `mapstructure:"spawn" toml:"spawn" json:"spawn"`
	}

	// SpawnOverrides holds per-node spawn command overrides.
	SpawnOverrides struct {
		Client string `mapstructure:"client" toml:"client" json:"client"`
		Middle string `mapstructure:"middle" toml:"middle" json:"middle"`
		Server string `mapstructure:"server" toml:"server" json:"server"`
	}

	// SSHConfig configures the direct SSH transport.
	SSHConfig struct {
		User           string   `mapstructure:"user" toml:"user" json:"user"`
		Port           int      `mapstructure:"port" toml:"port" json:"port"`
		PasswordFile   string   `mapstructure:"password_file" toml:"password_file" json:"password_file"`
		ConnectTimeout Duration `mapstructure:"connect_timeout" toml:"connect_timeout" json:"connect_timeout"`
	}

	// CheckConfig holds the check tunables in their serialized form.
	CheckConfig struct {
		HiMTU             int      `mapstructure:"himtu" toml:"himtu" json:"himtu"`
		LoMTU             int      `mapstructure:"lomtu" toml:"lomtu" json:"lomtu"`
		MSSMargin         int      `mapstructure:"mss_margin" toml:"mss_margin" json:"mss_margin"`
		ClearBGPNeighbors bool     `mapstructure:"clear_bgp_neighbors" toml:"clear_bgp_neighbors" json:"clear_bgp_neighbors"`
		SteadySleep       Duration `mapstructure:"steady_sleep" toml:"steady_sleep" json:"steady_sleep"`
		PollInterval      Duration `mapstructure:"poll_interval" toml:"poll_interval" json:"poll_interval"`
		TimeoutHiMSS      Duration `mapstructure:"timeout_himss_reached" toml:"timeout_himss_reached" json:"timeout_himss_reached"`
		TimeoutLoMSS      Duration `mapstructure:"timeout_lomss_reached" toml:"timeout_lomss_reached" json:"timeout_lomss_reached"`
		TimeoutRestore    Duration `mapstructure:"timeout_himss_restored" toml:"timeout_himss_restored" json:"timeout_himss_restored"`
	}

	// Config is the full effective configuration.
	Config struct {
		Testbed Testbed     `mapstructure:"testbed" toml:"testbed" json:"testbed"`
		SSH     SSHConfig   `mapstructure:"ssh" toml:"ssh" json:"ssh"`
		Check   CheckConfig `mapstructure:"check" toml:"check" json:"check"`
	}
)

// Parse returns the duration the string denotes.
func (d Duration) Parse() (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(string(d)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, d)
	}
	return v, nil
}

// Validate reports whether the string is a parsable duration.
func (d Duration) Validate() error {
	_, err := d.Parse()
	return err
}

// String returns the raw string form.
func (d Duration) String() string { return string(d) }

// Validate checks the fields the check cannot run without. Syntax-level
// constraints (ranges, duration format) are enforced by the CUE schema at
// load time; this catches what must hold across fields.
func (c *Config) Validate() error {
	for _, node := range []struct{ pos, host string }{
		{"client", c.Testbed.ClientHost},
		{"middle", c.Testbed.MiddleHost},
		{"server", c.Testbed.ServerHost},
	} {
		if strings.TrimSpace(node.host) == "" {
			return fmt.Errorf("%w: %s", ErrMissingHost, node.pos)
		}
	}
	if strings.TrimSpace(c.Testbed.MiddleServerInterface) == "" {
		return fmt.Errorf("%w: middle_server_interface", ErrMissingInterface)
	}
	if strings.TrimSpace(c.Testbed.ServerIP) == "" {
		return ErrMissingServerIP
	}
	port := types.ListenPort(c.SSH.Port)
	if err := port.Validate(); err != nil || port == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.SSH.Port)
	}
	if c.Testbed.Spawn.Client == "" || c.Testbed.Spawn.Middle == "" || c.Testbed.Spawn.Server == "" {
		// At least one node connects over SSH and will need the password.
		if ok, errs := types.FilesystemPath(c.SSH.PasswordFile).IsValid(); !ok {
			return fmt.Errorf("ssh.password_file: %w", errs[0])
		}
	}
	for name, d := range map[string]Duration{
		"ssh.connect_timeout":          c.SSH.ConnectTimeout,
		"check.steady_sleep":           c.Check.SteadySleep,
		"check.poll_interval":          c.Check.PollInterval,
		"check.timeout_himss_reached":  c.Check.TimeoutHiMSS,
		"check.timeout_lomss_reached":  c.Check.TimeoutLoMSS,
		"check.timeout_himss_restored": c.Check.TimeoutRestore,
	} {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	settings, err := c.Check.Settings()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// Settings converts the serialized check tunables into pmtu.Settings.
func (c CheckConfig) Settings() (pmtu.Settings, error) {
	var (
		s   pmtu.Settings
		err error
	)
	s.HiMTU = c.HiMTU
	s.LoMTU = c.LoMTU
	s.MSSMargin = c.MSSMargin
	s.ClearBGPNeighbors = c.ClearBGPNeighbors
	if s.SteadySleep, err = c.SteadySleep.Parse(); err != nil {
		return s, err
	}
	if s.PollInterval, err = c.PollInterval.Parse(); err != nil {
		return s, err
	}
	if s.HiMSSTimeout, err = c.TimeoutHiMSS.Parse(); err != nil {
		return s, err
	}
	if s.LoMSSTimeout, err = c.TimeoutLoMSS.Parse(); err != nil {
		return s, err
	}
	if s.RestoreTimeout, err = c.TimeoutRestore.Parse(); err != nil {
		return s, err
	}
	return s, nil
}
