// SPDX-License-Identifier: MPL-2.0

// Package dnostest provides an in-process fake DNOS device for tests: an SSH
// server that speaks just enough of the dncli dialect (loading banner,
// hostname prompt, command echo, ERROR: diagnostics) to exercise session and
// checker code without lab hardware.
package dnostest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

type (
	// Device scripts the fake CLI. Respond is consulted once per received
	// command line; returning an empty string prints only the next prompt.
	// Respond values starting with "ERROR:" reproduce CLI rejections.
	Device struct {
		Hostname string
		Password string
		Respond  func(cmd string) string

		mu       sync.Mutex
		commands []string
	}

	// Server is a running fake device listening on a loopback port.
	Server struct {
		srv *ssh.Server
		ln  net.Listener
	}
)

// Commands returns every command line the device has received, in order.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

func (d *Device) record(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
}

func (d *Device) prompt() string { return d.Hostname + "# " }

// handle emulates one interactive dncli login.
func (d *Device) handle(s ssh.Session) {
	io.WriteString(s, "DRIVENETS CLI Loading\r\n")
	io.WriteString(s, d.prompt())

	sc := bufio.NewScanner(s)
	for sc.Scan() {
		cmd := strings.TrimRight(sc.Text(), "\r")
		d.record(cmd)

		// Echo the command the way a remote pty does, then the output,
		// then the next prompt.
		io.WriteString(s, cmd+"\r\n")
		if d.Respond != nil {
			if out := d.Respond(cmd); out != "" {
				io.WriteString(s, strings.ReplaceAll(out, "\n", "\r\n")+"\r\n")
			}
		}
		io.WriteString(s, d.prompt())
	}
}

// NewServer starts a fake device on a random loopback port.
func NewServer(dev *Device) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listening: %w", err)
	}

	srv, err := wish.NewServer(
		wish.WithPasswordAuth(func(_ ssh.Context, password string) bool {
			return dev.Password == "" || password == dev.Password
		}),
		wish.WithMiddleware(func(ssh.Handler) ssh.Handler {
			return dev.handle
		}),
	)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}

	go srv.Serve(ln)
	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the host:port the fake device listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Port returns the listening port.
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Close shuts the server down.
func (s *Server) Close() error { return s.srv.Close() }
