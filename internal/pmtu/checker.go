// SPDX-License-Identifier: MPL-2.0

// Package pmtu implements the path-MTU regression check: flip the MTU of the
// link in the middle of a three-router testbed and verify that the MSS of
// the BGP session crossing it tracks the change in both directions.
package pmtu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/charmbracelet/log"

	"dnoscheck/internal/dnos"
)

// ErrPhaseTimeout is the sentinel error wrapped by PhaseTimeoutError.
var ErrPhaseTimeout = errors.New("phase timeout")

type (
	// Runner is the slice of dnos.Session the checker needs; tests provide
	// scripted fakes.
	Runner interface {
		Name() string
		Run(ctx context.Context, cmd string, opts ...dnos.RunOption) (string, error)
	}

	// Settings are the tunables of a check run. DefaultSettings returns the
	// values the regression was originally reproduced with.
	Settings struct {
		// HiMTU and LoMTU are the two MTU values the middle link is flipped
		// between. LoMTU must be below HiMTU.
		HiMTU int
		LoMTU int
		// MSSMargin is how far below HiMTU the MSS may settle and still
		// count as tracking the high MTU (the TCP/IP header overhead).
		MSSMargin int

		// ClearBGPNeighbors resets the BGP sessions after raising the MTU so
		// the MSS renegotiates from a clean slate.
		ClearBGPNeighbors bool

		// SteadySleep is how long to linger in each steady state.
		SteadySleep time.Duration
		// PollInterval is the delay between MSS reads while waiting.
		PollInterval time.Duration

		// HiMSSTimeout, LoMSSTimeout and RestoreTimeout bound the three
		// phases of the check.
		HiMSSTimeout   time.Duration
		LoMSSTimeout   time.Duration
		RestoreTimeout time.Duration
	}

	// CheckerConfig wires a Checker to a testbed.
	CheckerConfig struct {
		// Client, Middle and Server are sessions to the three routers. The
		// BGP session under test runs client<->server; the MTU is flipped on
		// Middle.
		Client Runner
		Middle Runner
		Server Runner

		// MiddleInterface is the middle router interface whose MTU is
		// flipped (the server-facing one).
		MiddleInterface string
		// ServerIP and ClientIP filter the client's session table down to
		// the BGP session under test. ClientIP may be empty.
		ServerIP string
		ClientIP string

		Settings Settings

		// Clock defaults to the wall clock.
		Clock clock.Clock
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Checker runs the PMTU regression check.
	Checker struct {
		client, middle, server Runner

		middleIface        string
		serverIP, clientIP string
		settings           Settings

		clk    clock.Clock
		logger *log.Logger
	}

	// PhaseTimeoutError reports that the MSS did not reach a phase's target
	// within its timeout.
	PhaseTimeoutError struct {
		Phase   string
		Timeout time.Duration
		LastMSS int
	}
)

// Error implements the error interface.
func (e *PhaseTimeoutError) Error() string {
	return fmt.Sprintf("%s: not reached within %s (last mss %d)", e.Phase, e.Timeout, e.LastMSS)
}

// Unwrap returns ErrPhaseTimeout for errors.Is detection.
func (e *PhaseTimeoutError) Unwrap() error { return ErrPhaseTimeout }

// DefaultSettings returns the settings the regression was reproduced with.
func DefaultSettings() Settings {
	return Settings{
		HiMTU:             9100,
		LoMTU:             2000,
		MSSMargin:         100,
		ClearBGPNeighbors: true,
		SteadySleep:       3 * time.Second,
		PollInterval:      time.Second,
		HiMSSTimeout:      30 * time.Second,
		LoMSSTimeout:      30 * time.Second,
		RestoreTimeout:    5 * time.Minute,
	}
}

// Validate reports settings that cannot describe a runnable check.
func (s Settings) Validate() error {
	if s.HiMTU <= 0 || s.LoMTU <= 0 {
		return fmt.Errorf("mtu values must be positive (himtu %d, lomtu %d)", s.HiMTU, s.LoMTU)
	}
	if s.LoMTU >= s.HiMTU {
		return fmt.Errorf("lomtu %d must be below himtu %d", s.LoMTU, s.HiMTU)
	}
	if s.MSSMargin < 0 {
		return fmt.Errorf("mss margin must not be negative (got %d)", s.MSSMargin)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive (got %s)", s.PollInterval)
	}
	return nil
}

// NewChecker builds a Checker from cfg, filling in default clock and logger.
func NewChecker(cfg CheckerConfig) *Checker {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{
		client:      cfg.Client,
		middle:      cfg.Middle,
		server:      cfg.Server,
		middleIface: cfg.MiddleInterface,
		serverIP:    cfg.ServerIP,
		clientIP:    cfg.ClientIP,
		settings:    cfg.Settings,
		clk:         clk,
		logger:      logger,
	}
}

// Run executes the three phases of the check: MSS reaches the high MTU,
// follows it down when the path narrows, and recovers when it widens again.
func (c *Checker) Run(ctx context.Context) error {
	if err := c.settings.Validate(); err != nil {
		return err
	}

	// Snapshot the BGP state on both ends before touching anything.
	if _, err := c.server.Run(ctx, "show bgp summary", dnos.WithNoMore()); err != nil {
		return err
	}
	if _, err := c.client.Run(ctx, "show bgp summary", dnos.WithNoMore()); err != nil {
		return err
	}

	if err := c.setMiddleMTU(ctx, c.settings.HiMTU); err != nil {
		return err
	}
	if c.settings.ClearBGPNeighbors {
		if _, err := c.client.Run(ctx, "clear bgp neighbor *"); err != nil {
			return err
		}
	}
	if err := c.waitForMSS(ctx, "reached hi mss", c.settings.HiMSSTimeout, c.hiMSSReached); err != nil {
		return err
	}
	c.steadySleep()

	if err := c.setMiddleMTU(ctx, c.settings.LoMTU); err != nil {
		return err
	}
	if err := c.waitForMSS(ctx, "reached lo mss", c.settings.LoMSSTimeout, c.loMSSReached); err != nil {
		return err
	}
	c.steadySleep()

	if err := c.setMiddleMTU(ctx, c.settings.HiMTU); err != nil {
		return err
	}
	return c.waitForMSS(ctx, "restored hi mss", c.settings.RestoreTimeout, c.hiMSSReached)
}

func (c *Checker) hiMSSReached(mss int) bool {
	return mss >= c.settings.HiMTU-c.settings.MSSMargin
}

func (c *Checker) loMSSReached(mss int) bool {
	// A zero MSS means the session is not established yet, not a narrow path.
	return mss > 0 && mss <= c.settings.LoMTU
}

// setMiddleMTU reconfigures the middle router's server-facing interface.
func (c *Checker) setMiddleMTU(ctx context.Context, mtu int) error {
	script := fmt.Sprintf("configure\n    interface %s mtu %d\n    commit\nexit", c.middleIface, mtu)
	start := c.clk.Now()
	if _, err := c.middle.Run(ctx, script); err != nil {
		return fmt.Errorf("setting mtu %d on %s: %w", mtu, c.middle.Name(), err)
	}
	c.logger.Info("middle mtu changed",
		"interface", c.middleIface, "mtu", mtu, "elapsed", c.clk.Since(start).Round(time.Millisecond))
	return nil
}

// readLastMSS reads the MSS of the watched BGP session from the client's
// session table. Port 179 narrows the table to BGP.
func (c *Checker) readLastMSS(ctx context.Context) (int, error) {
	cmd := "show system sessions | include 179 | include " + c.serverIP
	if c.clientIP != "" {
		cmd += " | include " + c.clientIP
	}
	out, err := c.client.Run(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return ParseMSS(out)
}

// waitForMSS polls the MSS until ok accepts it or the phase times out.
// A missing session row, unparsable output, or a transient CLI error all
// mean "not yet"; only transport failures abort the wait.
func (c *Checker) waitForMSS(ctx context.Context, phase string, timeout time.Duration, ok func(mss int) bool) error {
	start := c.clk.Now()
	lastMSS := 0
	for {
		mss, err := c.readLastMSS(ctx)
		switch {
		case err == nil && ok(mss):
			c.logger.Info("ok - "+phase, "mss", mss, "elapsed", c.clk.Since(start).Round(time.Millisecond))
			return nil
		case err == nil:
			lastMSS = mss
			c.logger.Info("waiting for mss", "phase", phase, "mss", mss)
		case errors.Is(err, ErrNoSession):
			c.logger.Info("no relevant bgp session currently established", "phase", phase)
		case errors.Is(err, ErrUnparsable):
			c.logger.Info("failed to parse session table output, will retry", "phase", phase, "err", err)
		case errors.Is(err, dnos.ErrCLI):
			c.logger.Warn("session table read failed, will retry", "phase", phase, "err", err)
		default:
			return err
		}

		if c.clk.Since(start) >= timeout {
			return &PhaseTimeoutError{Phase: phase, Timeout: timeout, LastMSS: lastMSS}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.clk.Sleep(c.settings.PollInterval)
	}
}

func (c *Checker) steadySleep() {
	if c.settings.SteadySleep <= 0 {
		return
	}
	c.logger.Info("sleeping in steady state", "duration", c.settings.SteadySleep)
	c.clk.Sleep(c.settings.SteadySleep)
}
