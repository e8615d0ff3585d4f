// Package daemon wires together the control channel and session manager
// into the long-lived daemon process (spec.md §2 component O, §4.9, §5).
//
// Structure follows the teacher's internal/daemon.Daemon.Run: stale-socket
// detection before binding, an accept loop goroutine, and a single
// blocking Run call that returns once the process is told to stop. Signal
// handling and the fork-to-background helper follow the teacher's
// ForkDaemon (re-exec with a hidden subcommand, poll for the socket to
// appear) adapted to scarab's own hidden "_daemon" entrypoint.
package daemon

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/scarab-term/scarab/internal/config"
	"github.com/scarab-term/scarab/internal/control"
	"github.com/scarab-term/scarab/internal/session"
	"github.com/scarab-term/scarab/internal/xdg"
)

// ExitCode values match spec.md §6's CLI contract for scarab-daemon.
type ExitCode int

const (
	ExitOK               ExitCode = 0
	ExitConfigError      ExitCode = 2
	ExitSocketConflict    ExitCode = 3
	ExitSharedMemoryError ExitCode = 4
)

// Daemon owns the control-channel listener and the session manager for
// one daemon process lifetime.
type Daemon struct {
	cfg        config.Config
	logger     *log.Logger
	socketPath string
	dbPath     string

	manager *session.Manager
	server  *control.Server
}

// New constructs a Daemon without starting anything.
func New(cfg config.Config, logger *log.Logger, socketPath, dbPath string) *Daemon {
	return &Daemon{cfg: cfg, logger: logger, socketPath: socketPath, dbPath: dbPath}
}

// Run starts the session manager and control-channel listener, then
// blocks until SIGINT or SIGTERM arrives or the accept loop stops. On a
// signal the listener is closed, which removes the socket file; on
// return Manager.Close closes every live session's PTY and shared-grid
// region, unlinking the regions this daemon created. It returns the ExitCode the caller's main() should exit with.
func (d *Daemon) Run() ExitCode {
	if err := checkStaleSocket(d.socketPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitSocketConflict
	}

	manager, err := session.NewManager(d.dbPath, d.cfg, d.logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scarab-daemon: session manager:", err)
		return ExitSharedMemoryError
	}
	d.manager = manager
	defer d.manager.Close()

	server, err := control.Listen(d.socketPath, d.manager, d.logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scarab-daemon: listen:", err)
		return ExitSocketConflict
	}
	d.server = server

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.server.Serve() }()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				d.reload()
				continue
			default:
				d.logf("received %s, shutting down", sig)
				d.server.Close()
				return ExitOK
			}
		case err := <-serveErr:
			if err != nil && !errors.Is(err, net.ErrClosed) {
				d.logf("serve: %v", err)
			}
			return ExitOK
		}
	}
}

// reload handles SIGHUP. The config loader itself is an external
// collaborator (spec.md §6); this only logs that the signal arrived.
// Configuration is not re-read: the Config passed to New stays in use,
// including for sessions spawned afterwards.
func (d *Daemon) reload() {
	d.logf("SIGHUP received; configuration is not reloaded")
}

func (d *Daemon) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// checkStaleSocket mirrors the teacher's Run: if a socket file already
// exists, dial it briefly to distinguish a live daemon from a stale file
// left behind by an unclean exit, removing only the latter.
func checkStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("scarab-daemon: socket %s is already in use by a running daemon", path)
	}
	return os.Remove(path)
}

// ForkBackground re-execs the current binary with the hidden _daemon
// subcommand, detaching it into its own session, and waits for the
// control socket to appear before returning.
func ForkBackground(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("daemon: find executable: %w", err)
	}

	cmd := exec.Command(exe, append([]string{"_daemon"}, args...)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("daemon: open /dev/null: %w", err)
	}
	defer devNull.Close()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = devNull, devNull, devNull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("daemon: start background process: %w", err)
	}
	go cmd.Wait()

	sockPath := xdg.SocketPath()
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(sockPath); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon: did not start (socket %s not found after 5s)", sockPath)
}
