package daemon

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/scarab-term/scarab/internal/config"
)

func newTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "scarab.sock")
	dbPath := filepath.Join(dir, "sessions.db")
	os.Setenv("SHELL", "/bin/sh")
	cfg := config.Default()
	cfg.Grid = config.GridConfig{Cols: 20, Rows: 10}
	d := New(cfg, log.New(os.Stderr, "", 0), sockPath, dbPath)
	return d, sockPath
}

func TestDaemon_Run_BindsSocketAndStopsOnSIGTERM(t *testing.T) {
	d, sockPath := newTestDaemon(t)

	done := make(chan ExitCode, 1)
	go func() { done <- d.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(sockPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal self: %v", err)
	}

	select {
	case code := <-done:
		if code != ExitOK {
			t.Fatalf("want ExitOK, got %v", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after SIGTERM")
	}

	if _, err := os.Stat(sockPath); err == nil {
		t.Fatal("expected socket file to be removed on shutdown")
	}
}

func TestCheckStaleSocket_RemovesFileWithNoListener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stale.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	if err := checkStaleSocket(path); err != nil {
		t.Fatalf("checkStaleSocket: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected stale socket file to be removed")
	}
}

func TestCheckStaleSocket_RefusesWhenDaemonIsListening(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if err := checkStaleSocket(path); err == nil {
		t.Fatal("expected an error for a socket with a live listener")
	}
}
