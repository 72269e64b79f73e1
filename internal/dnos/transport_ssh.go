// SPDX-License-Identifier: MPL-2.0

package dnos

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultSSHUser = "dnroot"
	defaultSSHPort = 22

	ptyTerm   = "xterm"
	ptyWidth  = 200
	ptyHeight = 80
)

// SSHOptions configures a direct SSH connection to a DNOS device.
type SSHOptions struct {
	// User is the login user. Defaults to dnroot.
	User string
	// Host is the device hostname or address.
	Host string
	// Port is the SSH port. Defaults to 22.
	Port int
	// Password authenticates the login. See ReadPasswordFile.
	Password string
	// ConnectTimeout bounds establishing the TCP connection.
	ConnectTimeout time.Duration
}

// sshTransport is an interactive shell on an SSH connection. The remote pty
// merges the CLI's output streams, matching what an operator sees.
type sshTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

// DialSSH connects to a DNOS device and starts an interactive shell with a
// pty, ready to be wrapped in a Session.
func DialSSH(opts SSHOptions) (Transport, error) {
	if opts.User == "" {
		opts.User = defaultSSHUser
	}
	if opts.Port == 0 {
		opts.Port = defaultSSHPort
	}

	cfg := &ssh.ClientConfig{
		User:    opts.User,
		Auth:    []ssh.AuthMethod{ssh.Password(opts.Password)},
		Timeout: opts.ConnectTimeout,
		// Lab devices regenerate host keys on reinstall; pinning them would
		// make every testbed redeploy a manual intervention.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening session on %s: %w", addr, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(ptyTerm, ptyHeight, ptyWidth, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("requesting pty on %s: %w", addr, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("starting shell on %s: %w", addr, err)
	}

	return &sshTransport{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

func (t *sshTransport) Read(p []byte) (int, error)  { return t.stdout.Read(p) }
func (t *sshTransport) Write(p []byte) (int, error) { return t.stdin.Write(p) }

// Close tears down the shell session and the connection.
func (t *sshTransport) Close() error {
	t.stdin.Close()
	t.session.Close()
	return t.client.Close()
}

// ReadPasswordFile reads a login password from path, expanding a leading ~
// and trimming surrounding whitespace. The file plays the role sshpass -f
// plays for the interactive ssh client.
func ReadPasswordFile(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading password file: %w", err)
	}
	pw := strings.TrimSpace(string(data))
	if pw == "" {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return pw, nil
}
