// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"dnoscheck/internal/config"
	"dnoscheck/internal/issue"
	"dnoscheck/internal/logging"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbosity counts the -v flags
	verbosity int
	// quiet suppresses everything below errors
	quiet bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "dnoscheck",
		Short: "PMTU discovery regression check for DNOS testbeds",
		Long: TitleStyle.Render("dnoscheck") + SubtitleStyle.Render(" - PMTU discovery regression check for DNOS testbeds") + `

dnoscheck drives a three-router DNOS testbed through an MTU flap on the
middle link and watches the MSS of the BGP session between the two edge
routers. If PMTU discovery works, the MSS tracks the path MTU down and
back up; if it does not, the check fails with the last observed MSS.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a config file: dnoscheck config init
  2. Point it at your three routers and the middle link interface
  3. Run the check with: dnoscheck check

` + SubtitleStyle.Render("Examples:") + `
  dnoscheck check                    Run the full check
  dnoscheck check --clear-bgp-neighbors=false
                                     Keep the BGP sessions up across MTU changes
  dnoscheck config show              Show the effective configuration
  dnoscheck docs                     Browse the built-in documentation`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dnoscheck/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(docsCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// newLogger builds the logger the way the global flags ask for it.
func newLogger() *log.Logger {
	return logging.New(os.Stderr, verbosity, quiet)
}

// loadConfig loads the effective configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load config").
			WithResource(cfgFile).
			WithSuggestion("Run 'dnoscheck config init' to create a default config").
			WithSuggestion("Run 'dnoscheck config show' to see what was picked up").
			Wrap(err).
			BuildError()
	}
	return cfg, nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
