// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"dnoscheck/internal/config"
	"dnoscheck/internal/dnos"
	"dnoscheck/internal/issue"
	"dnoscheck/internal/pmtu"
)

var (
	checkClearBGP       bool
	checkTimeoutHiMSS   string
	checkTimeoutLoMSS   string
	checkTimeoutRestore string
	checkSpawnClient    string
	checkSpawnMiddle    string
	checkSpawnServer    string

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run the PMTU regression check against the testbed",
		Long: `Run the PMTU regression check against the testbed.

The check connects to the three configured routers, flips the MTU of the
middle link between the configured high and low values, and verifies that
the MSS of the BGP session between the edge routers follows each change
within its phase timeout.

Exit status is 0 when the MSS tracked all three MTU changes, 1 when a
phase timed out or a session failed mid-check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkClearBGP, "clear-bgp-neighbors", true,
		"clear all BGP neighbors after the first MTU change so sessions renegotiate (=false to disable)")
	checkCmd.Flags().StringVar(&checkTimeoutHiMSS, "timeout-himss-reached", "",
		"override for the first phase timeout (e.g. 45s)")
	checkCmd.Flags().StringVar(&checkTimeoutLoMSS, "timeout-lomss-reached", "",
		"override for the second phase timeout")
	checkCmd.Flags().StringVar(&checkTimeoutRestore, "timeout-himss-restored", "",
		"override for the final phase timeout")
	checkCmd.Flags().StringVar(&checkSpawnClient, "spawn-client", "",
		"command to spawn under a pty for the client session instead of direct SSH")
	checkCmd.Flags().StringVar(&checkSpawnMiddle, "spawn-middle", "",
		"command to spawn under a pty for the middle session instead of direct SSH")
	checkCmd.Flags().StringVar(&checkSpawnServer, "spawn-server", "",
		"command to spawn under a pty for the server session instead of direct SSH")
}

func runCheck(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyCheckFlags(cmd, cfg); err != nil {
		return err
	}

	logger := newLogger()
	ctx := cmd.Context()

	sessions, err := connectTestbed(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbosity > 0))
		return &ExitError{Code: 1, Err: err}
	}
	defer sessions.close(logger)

	for _, s := range []*dnos.Session{sessions.client, sessions.middle, sessions.server} {
		if err := s.WaitReady(ctx); err != nil {
			wrapped := issue.WrapWithContext(err, "wait for device CLI", s.Name())
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(wrapped, verbosity > 0))
			return &ExitError{Code: 1, Err: wrapped}
		}
		logger.Debug("device ready", "session", s.Name())
	}

	settings, err := cfg.Check.Settings()
	if err != nil {
		return err
	}
	checker := pmtu.NewChecker(pmtu.CheckerConfig{
		Client:          sessions.client,
		Middle:          sessions.middle,
		Server:          sessions.server,
		MiddleInterface: cfg.Testbed.MiddleServerInterface,
		ServerIP:        cfg.Testbed.ServerIP,
		ClientIP:        cfg.Testbed.ClientIP,
		Settings:        settings,
		Logger:          logger,
	})

	if err := checker.Run(ctx); err != nil {
		var phaseErr *pmtu.PhaseTimeoutError
		if errors.As(err, &phaseErr) {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("FAIL: ")+fmt.Sprintf(
				"mss never %s (last observed %d, waited %s)",
				phaseErr.Phase, phaseErr.LastMSS, phaseErr.Timeout))
			fmt.Fprintln(os.Stderr, VerboseStyle.Render(
				"Run 'dnoscheck docs' for what an MSS that never converges usually means."))
		} else {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbosity > 0))
		}
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Println(SuccessStyle.Render("PASS:") + " mss tracked all three mtu changes")
	return nil
}

// applyCheckFlags layers the explicitly set command flags over the loaded
// config, then re-validates.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("clear-bgp-neighbors") {
		cfg.Check.ClearBGPNeighbors = checkClearBGP
	}
	for _, override := range []struct {
		name  string
		value string
		dst   *config.Duration
	}{
		{"timeout-himss-reached", checkTimeoutHiMSS, &cfg.Check.TimeoutHiMSS},
		{"timeout-lomss-reached", checkTimeoutLoMSS, &cfg.Check.TimeoutLoMSS},
		{"timeout-himss-restored", checkTimeoutRestore, &cfg.Check.TimeoutRestore},
	} {
		if !flags.Changed(override.name) {
			continue
		}
		d := config.Duration(override.value)
		if err := d.Validate(); err != nil {
			return fmt.Errorf("--%s: %w", override.name, err)
		}
		*override.dst = d
	}
	for _, override := range []struct {
		name  string
		value string
		dst   *string
	}{
		{"spawn-client", checkSpawnClient, &cfg.Testbed.Spawn.Client},
		{"spawn-middle", checkSpawnMiddle, &cfg.Testbed.Spawn.Middle},
		{"spawn-server", checkSpawnServer, &cfg.Testbed.Spawn.Server},
	} {
		if flags.Changed(override.name) {
			*override.dst = override.value
		}
	}
	return cfg.Validate()
}

// testbedSessions bundles the three router sessions of a check run.
type testbedSessions struct {
	client, middle, server *dnos.Session
}

func (ts *testbedSessions) close(logger *log.Logger) {
	for _, s := range []*dnos.Session{ts.client, ts.middle, ts.server} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			logger.Debug("session close", "session", s.Name(), "err", err)
		}
	}
}

// connectTestbed opens a session to each of the three routers, via a spawn
// override when one is configured and direct SSH otherwise. The SSH password
// is read lazily so spawn-only setups need no password file.
func connectTestbed(cfg *config.Config, logger *log.Logger) (*testbedSessions, error) {
	var cachedPassword string
	password := func() (string, error) {
		if cachedPassword != "" {
			return cachedPassword, nil
		}
		pw, err := dnos.ReadPasswordFile(cfg.SSH.PasswordFile)
		if err != nil {
			return "", issue.NewErrorContext().
				WithOperation("read password file").
				WithResource(cfg.SSH.PasswordFile).
				WithSuggestion("Create the file with the device password as its only line").
				Wrap(err).
				BuildError()
		}
		cachedPassword = pw
		return pw, nil
	}

	ts := &testbedSessions{}
	nodes := []struct {
		position string
		host     string
		spawn    string
		dst      **dnos.Session
	}{
		{"client", cfg.Testbed.ClientHost, cfg.Testbed.Spawn.Client, &ts.client},
		{"middle", cfg.Testbed.MiddleHost, cfg.Testbed.Spawn.Middle, &ts.middle},
		{"server", cfg.Testbed.ServerHost, cfg.Testbed.Spawn.Server, &ts.server},
	}
	for _, node := range nodes {
		session, err := connectNode(cfg, node.position, node.host, node.spawn, password, logger)
		if err != nil {
			ts.close(logger)
			return nil, err
		}
		*node.dst = session
	}
	return ts, nil
}

func connectNode(cfg *config.Config, position, host, spawn string, password func() (string, error), logger *log.Logger) (*dnos.Session, error) {
	opts := []dnos.SessionOption{dnos.WithLogger(logger)}
	// Mirror raw device I/O to stderr at -vv and above.
	if verbosity > 1 {
		opts = append(opts, dnos.WithMirror(os.Stderr))
	}

	if spawn != "" {
		logger.Debug("spawning session", "position", position, "command", spawn)
		tr, err := dnos.SpawnPTY(spawn)
		if err != nil {
			return nil, issue.WrapWithContext(err, "spawn session command", spawn)
		}
		return dnos.NewSession(host, tr, opts...), nil
	}

	pw, err := password()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.SSH.ConnectTimeout.Parse()
	if err != nil {
		return nil, err
	}
	logger.Debug("dialing", "position", position, "host", host, "port", cfg.SSH.Port)
	tr, err := dnos.DialSSH(dnos.SSHOptions{
		User:           cfg.SSH.User,
		Host:           host,
		Port:           cfg.SSH.Port,
		Password:       pw,
		ConnectTimeout: timeout,
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("connect to router").
			WithResource(fmt.Sprintf("%s:%d", host, cfg.SSH.Port)).
			WithSuggestion("Check the host answers on the configured port: ssh " + cfg.SSH.User + "@" + host).
			WithSuggestion("Check the [ssh] section of your config").
			Wrap(err).
			BuildError()
	}
	return dnos.NewSession(host, tr, opts...), nil
}
