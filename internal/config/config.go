// SPDX-License-Identifier: MPL-2.0

// Package config loads the dnoscheck configuration: a TOML file describing
// the testbed and the check tunables, with environment variable overrides.
// Defaults reproduce the original lab setup, so a config file is only needed
// where a testbed differs from it.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"dnoscheck/pkg/cueutil"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "dnoscheck"
	// ConfigFileName is the config file name within the config directory.
	ConfigFileName = "config.toml"

	envPrefix = "DNOSCHECK"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the dnoscheck configuration directory using
// platform-specific conventions: %APPDATA% on Windows, ~/Library/Application
// Support on macOS, $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolving home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// Default returns the configuration of the original lab setup.
func Default() *Config {
	return &Config{
		Testbed: Testbed{
			ClientHost:            "dn40-re01",
			MiddleHost:            "WC81917W80011",
			ServerHost:            "kvm29-ncc0",
			ClientInterface:       "ge100-0/0/3",
			MiddleClientInterface: "ge100-0/0/3",
			MiddleServerInterface: "ge100-0/0/18.2232",
			ServerInterface:       "ge100-0/0/18.2232",
			ClientIP:              "18.18.18.18",
			ServerIP:              "11.11.11.11",
		},
		SSH: SSHConfig{
			User:           "dnroot",
			Port:           22,
			PasswordFile:   "~/.drivenets-default-dnroot-passwd.txt",
			ConnectTimeout: "30s",
		},
		Check: CheckConfig{
			HiMTU:             9100,
			LoMTU:             2000,
			MSSMargin:         100,
			ClearBGPNeighbors: true,
			SteadySleep:       "3s",
			PollInterval:      "1s",
			TimeoutHiMSS:      "30s",
			TimeoutLoMSS:      "30s",
			TimeoutRestore:    "5m",
		},
	}
}

// LoadOptions controls where Load looks for the config file.
type LoadOptions struct {
	// ConfigFilePath, when set, is used exclusively; a missing file is an
	// error. When empty the default location is used and a missing file
	// just yields the defaults.
	ConfigFilePath string
}

// Load reads the config file from the default location.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions reads and validates the configuration: defaults, then the
// config file, then DNOSCHECK_* environment variables, highest last.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(filepath.Join(dir, ConfigFileName))
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return nil, fmt.Errorf("reading config: %w", err)
				}
			}
		}
	}

	var cfg Config
	// Weak typing lets environment overrides of numeric and boolean keys
	// arrive as strings.
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := validateSchema(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AllSettings stays schema-complete even
// with a sparse config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("testbed.client_host", d.Testbed.ClientHost)
	v.SetDefault("testbed.middle_host", d.Testbed.MiddleHost)
	v.SetDefault("testbed.server_host", d.Testbed.ServerHost)
	v.SetDefault("testbed.client_interface", d.Testbed.ClientInterface)
	v.SetDefault("testbed.middle_client_interface", d.Testbed.MiddleClientInterface)
	v.SetDefault("testbed.middle_server_interface", d.Testbed.MiddleServerInterface)
	v.SetDefault("testbed.server_interface", d.Testbed.ServerInterface)
	v.SetDefault("testbed.client_ip", d.Testbed.ClientIP)
	v.SetDefault("testbed.server_ip", d.Testbed.ServerIP)
	v.SetDefault("testbed.spawn.client", d.Testbed.Spawn.Client)
	v.SetDefault("testbed.spawn.middle", d.Testbed.Spawn.Middle)
	v.SetDefault("testbed.spawn.server", d.Testbed.Spawn.Server)
	v.SetDefault("ssh.user", d.SSH.User)
	v.SetDefault("ssh.port", d.SSH.Port)
	v.SetDefault("ssh.password_file", d.SSH.PasswordFile)
	v.SetDefault("ssh.connect_timeout", string(d.SSH.ConnectTimeout))
	v.SetDefault("check.himtu", d.Check.HiMTU)
	v.SetDefault("check.lomtu", d.Check.LoMTU)
	v.SetDefault("check.mss_margin", d.Check.MSSMargin)
	v.SetDefault("check.clear_bgp_neighbors", d.Check.ClearBGPNeighbors)
	v.SetDefault("check.steady_sleep", string(d.Check.SteadySleep))
	v.SetDefault("check.poll_interval", string(d.Check.PollInterval))
	v.SetDefault("check.timeout_himss_reached", string(d.Check.TimeoutHiMSS))
	v.SetDefault("check.timeout_lomss_reached", string(d.Check.TimeoutLoMSS))
	v.SetDefault("check.timeout_himss_restored", string(d.Check.TimeoutRestore))
}

// validateSchema unifies the effective configuration with the embedded CUE
// schema and reports constraint violations.
func validateSchema(cfg *Config) error {
	cuectx := cuecontext.New()
	schema := cuectx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("looking up config schema: %w", err)
	}
	unified := def.Unify(cuectx.Encode(cfg))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueutil.FormatError(err, ConfigFileName)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path, creating
// parent directories as needed. Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	header := "# dnoscheck configuration. Values mirror the original lab setup;\n# override what differs on your testbed.\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

// Render returns cfg as TOML, for `config show`.
func Render(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(data), nil
}
