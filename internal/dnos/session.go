// SPDX-License-Identifier: MPL-2.0

package dnos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// promptPattern matches the DNOS command prompt at the end of the
	// received output.
	promptPattern = regexp.MustCompile(`# $`)
	// errorPattern matches an ERROR: diagnostic anywhere in the output.
	errorPattern = regexp.MustCompile(`ERROR:.*`)
	// loadingPattern matches the banner printed while dncli starts up.
	loadingPattern = regexp.MustCompile(`DRIVENETS CLI Loading`)
)

// DefaultTimeout bounds a single Expect when the caller's context carries no
// deadline of its own.
const DefaultTimeout = 120 * time.Second

type (
	// Transport is a bidirectional byte stream to an interactive CLI.
	Transport interface {
		io.ReadWriteCloser
	}

	// Session drives one interactive DNOS CLI over a Transport. A single
	// reader goroutine owns the transport's read side; Expect consumes its
	// output and matches patterns against the accumulated buffer. Session
	// methods are not safe for concurrent use.
	Session struct {
		name    string
		tr      Transport
		logger  *log.Logger
		mirror  io.Writer
		timeout time.Duration

		buf    bytes.Buffer // received but not yet matched output
		readCh chan readChunk
		closed bool
	}

	// SessionOption configures a Session.
	SessionOption func(*Session)

	readChunk struct {
		data []byte
		err  error
	}

	runOptions struct {
		noMore bool
	}

	// RunOption configures a single Run call.
	RunOption func(*runOptions)
)

// WithMirror tees everything the device prints to w, mirroring the session
// transcript to the user.
func WithMirror(w io.Writer) SessionOption {
	return func(s *Session) { s.mirror = w }
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithTimeout overrides the default per-Expect timeout.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithNoMore pipes the command through `no-more`, disabling the CLI pager.
func WithNoMore() RunOption {
	return func(o *runOptions) { o.noMore = true }
}

// NewSession wraps tr in a Session named name (used in errors and logs) and
// starts consuming its output.
func NewSession(name string, tr Transport, opts ...SessionOption) *Session {
	s := &Session{
		name:    name,
		tr:      tr,
		logger:  log.Default(),
		timeout: DefaultTimeout,
		readCh:  make(chan readChunk, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.readLoop()
	return s
}

// Name returns the session's display name.
func (s *Session) Name() string { return s.name }

// readLoop pumps transport output into readCh until the transport ends.
func (s *Session) readLoop() {
	for {
		buf := make([]byte, 4096)
		n, err := s.tr.Read(buf)
		if n > 0 {
			s.readCh <- readChunk{data: buf[:n]}
		}
		if err != nil {
			s.readCh <- readChunk{err: err}
			return
		}
	}
}

// SendLine writes line followed by a newline to the device.
func (s *Session) SendLine(line string) error {
	_, err := io.WriteString(s.tr, line+"\n")
	return err
}

// Expect waits until one of patterns matches the accumulated device output.
// It returns the index of the first listed pattern that matches and the
// output preceding the match; the match itself and everything before it are
// consumed. The wait is bounded by ctx, or by the session timeout when ctx
// has no deadline.
func (s *Session) Expect(ctx context.Context, patterns ...*regexp.Regexp) (int, string, error) {
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for {
		if idx, before, ok := s.match(patterns); ok {
			return idx, before, nil
		}
		if s.closed {
			return -1, "", fmt.Errorf("%s: %w before match (buffered %q)", s.name, ErrClosed, s.buf.String())
		}

		select {
		case c := <-s.readCh:
			if len(c.data) > 0 {
				s.buf.Write(c.data)
				if s.mirror != nil {
					s.mirror.Write(c.data)
				}
			}
			if c.err != nil {
				s.closed = true
			}
		case <-ctx.Done():
			return -1, "", &ExpectTimeoutError{Session: s.name, Patterns: patterns, Buffered: s.buf.String()}
		}
	}
}

// match checks patterns in listed order against the buffer and consumes
// through the end of the first one that matches.
func (s *Session) match(patterns []*regexp.Regexp) (int, string, bool) {
	data := s.buf.String()
	for i, p := range patterns {
		loc := p.FindStringIndex(data)
		if loc == nil {
			continue
		}
		before := data[:loc[0]]
		s.buf.Reset()
		s.buf.WriteString(data[loc[1]:])
		return i, before, true
	}
	return -1, "", false
}

// drain discards output already received but not yet matched.
func (s *Session) drain() {
	for {
		select {
		case c := <-s.readCh:
			if len(c.data) > 0 && s.mirror != nil {
				s.mirror.Write(c.data)
			}
			if c.err != nil {
				s.closed = true
				s.buf.Reset()
				return
			}
		default:
			s.buf.Reset()
			return
		}
	}
}

// WaitReady waits for the dncli startup banner and the first prompt.
func (s *Session) WaitReady(ctx context.Context) error {
	s.logger.Debug("waiting for dncli loading banner", "session", s.name)
	if _, _, err := s.Expect(ctx, loadingPattern); err != nil {
		return err
	}
	s.logger.Debug("waiting for dncli prompt", "session", s.name)
	if _, _, err := s.Expect(ctx, promptPattern); err != nil {
		return err
	}
	s.logger.Debug("dncli ready", "session", s.name)
	return nil
}

// Run sends cmd and waits for the next prompt. The echoed command line and
// the prompt line are stripped from the returned output. An ERROR:
// diagnostic from the CLI is returned as a CLIError.
func (s *Session) Run(ctx context.Context, cmd string, opts ...RunOption) (string, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.noMore {
		cmd += " | no-more"
	}

	// A previous multi-line script may have left extra prompts unread;
	// start the command from a clean buffer.
	s.drain()

	if err := s.SendLine(cmd); err != nil {
		return "", err
	}
	idx, before, err := s.Expect(ctx, errorPattern, promptPattern)
	if err != nil {
		return "", err
	}
	if idx == 0 {
		s.logger.Warn("received DNOS CLI error", "session", s.name, "command", cmd)
		return "", &CLIError{Session: s.name, Command: cmd, Output: strings.TrimSpace(before)}
	}
	return stripEcho(before), nil
}

// stripEcho drops the echoed command line and the line holding the next
// prompt, leaving only the command's own output.
func stripEcho(out string) string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	if len(lines) <= 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// Close releases the underlying transport.
func (s *Session) Close() error {
	return s.tr.Close()
}
