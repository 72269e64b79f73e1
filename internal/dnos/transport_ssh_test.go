// SPDX-License-Identifier: MPL-2.0

package dnos_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dnoscheck/internal/dnos"
	"dnoscheck/internal/dnos/dnostest"
)

func TestDialSSHAndRun(t *testing.T) {
	t.Parallel()

	dev := &dnostest.Device{
		Hostname: "kvm29-ncc0",
		Password: "secret",
		Respond: func(cmd string) string {
			if strings.HasPrefix(cmd, "show bgp summary") {
				return "BGP router identifier 11.11.11.11"
			}
			return ""
		},
	}
	srv, err := dnostest.NewServer(dev)
	if err != nil {
		t.Fatalf("starting fake device: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	tr, err := dnos.DialSSH(dnos.SSHOptions{
		User:           "dnroot",
		Host:           "127.0.0.1",
		Port:           srv.Port(),
		Password:       "secret",
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("DialSSH() error: %v", err)
	}

	s := dnos.NewSession("server", tr, dnos.WithTimeout(5*time.Second))
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() error: %v", err)
	}
	out, err := s.Run(ctx, "show bgp summary", dnos.WithNoMore())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if out != "BGP router identifier 11.11.11.11" {
		t.Errorf("Run() output = %q", out)
	}

	cmds := dev.Commands()
	if len(cmds) != 1 || cmds[0] != "show bgp summary | no-more" {
		t.Errorf("device received %v, want the no-more form of the command", cmds)
	}
}

func TestDialSSHBadPassword(t *testing.T) {
	t.Parallel()

	srv, err := dnostest.NewServer(&dnostest.Device{Hostname: "dn40-re01", Password: "secret"})
	if err != nil {
		t.Fatalf("starting fake device: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	_, err = dnos.DialSSH(dnos.SSHOptions{
		Host:           "127.0.0.1",
		Port:           srv.Port(),
		Password:       "wrong",
		ConnectTimeout: 5 * time.Second,
	})
	if err == nil {
		t.Fatal("DialSSH() succeeded with a wrong password")
	}
}

func TestReadPasswordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwd.txt")
	if err := os.WriteFile(path, []byte("hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := dnos.ReadPasswordFile(path)
	if err != nil {
		t.Fatalf("ReadPasswordFile() error: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("ReadPasswordFile() = %q, want %q", got, "hunter2")
	}
}

func TestReadPasswordFileTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "pw.txt"), []byte("s3cret"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := dnos.ReadPasswordFile("~/pw.txt")
	if err != nil {
		t.Fatalf("ReadPasswordFile() error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("ReadPasswordFile() = %q, want %q", got, "s3cret")
	}
}

func TestReadPasswordFileMissing(t *testing.T) {
	t.Parallel()

	_, err := dnos.ReadPasswordFile(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("ReadPasswordFile() succeeded on a missing file")
	}
}
