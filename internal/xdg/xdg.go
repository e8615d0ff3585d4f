// Package xdg resolves the base directories Scarab uses for runtime
// sockets, persisted state, and logs, following the XDG Base Directory
// spec with sane fallbacks — the same "env var, else a dotfile under
// HOME" pattern the teacher uses for its own ~/.h2 layout
// (internal/config.ConfigDir), generalized to the three XDG variables
// spec.md §6 names.
package xdg

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// RuntimeDir returns $XDG_RUNTIME_DIR, falling back to a per-uid
// directory under os.TempDir() when unset (e.g. non-systemd hosts).
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return v
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("scarab-runtime-%d", os.Getuid()))
}

// DataHome returns $XDG_DATA_HOME, falling back to ~/.local/share.
func DataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".local", "share")
}

// StateHome returns $XDG_STATE_HOME, falling back to ~/.local/state.
func StateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	return filepath.Join(homeDir(), ".local", "state")
}

// ScarabDataDir returns $XDG_DATA_HOME/scarab.
func ScarabDataDir() string {
	return filepath.Join(DataHome(), "scarab")
}

// ScarabStateDir returns $XDG_STATE_HOME/scarab.
func ScarabStateDir() string {
	return filepath.Join(StateHome(), "scarab")
}

// SocketPath returns the control-channel socket path for the current
// user, honoring SCARAB_SOCKET as an override (spec.md §6).
func SocketPath() string {
	if v := os.Getenv("SCARAB_SOCKET"); v != "" {
		return v
	}
	return filepath.Join(RuntimeDir(), fmt.Sprintf("scarab-%d.sock", os.Getuid()))
}

// SessionsDBPath returns the path to the session-manager's persistence
// database.
func SessionsDBPath() string {
	return filepath.Join(ScarabDataDir(), "sessions.db")
}

// DaemonLogPath returns the path to the daemon's rotated log file.
func DaemonLogPath() string {
	return filepath.Join(ScarabStateDir(), "daemon.log")
}

// RegionName returns the shared-memory region name for a session id,
// truncated to a short form as spec.md §6 prescribes.
func RegionName(sessionIDShort string) string {
	return "/scarab-shm-" + sessionIDShort
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	return "."
}
