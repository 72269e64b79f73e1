// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dnoscheck/internal/config"
)

var (
	configInitStdout bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage dnoscheck configuration",
		Long: `Manage dnoscheck configuration.

Configuration is stored in:
  - Linux: ~/.config/dnoscheck/config.toml
  - macOS: ~/Library/Application Support/dnoscheck/config.toml
  - Windows: %APPDATA%\dnoscheck\config.toml

Every key can also be overridden from the environment with a
DNOSCHECK_ prefixed variable, e.g. DNOSCHECK_CHECK_HIMTU=9100.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig()
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
	initCmd.Flags().BoolVar(&configInitStdout, "stdout", false,
		"print the default configuration instead of writing it")
	configCmd.AddCommand(initCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})
}

// showConfig prints the effective configuration (defaults, file and
// environment merged) as TOML.
func showConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := config.Render(cfg)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func initConfig() error {
	if configInitStdout {
		out, err := config.Render(config.Default())
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	path := cfgFile
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path = filepath.Join(dir, config.ConfigFileName)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Created ") + CmdStyle.Render(path))
	return nil
}

func showConfigPath() error {
	if cfgFile != "" {
		fmt.Println(cfgFile)
		return nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(dir, config.ConfigFileName))
	return nil
}
