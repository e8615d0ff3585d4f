// Package logging wraps the standard library's log.Logger the way the
// teacher repo's daemon and bridge-service packages do (plain
// "log.Printf" call sites with an fmt.Errorf-wrapped error trail), adding
// only a rotation policy and a per-component prefix on top.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used as log prefixes, matching spec.md §6's expectation
// that daemon.log lines are attributable to a subsystem.
const (
	ComponentSession = "session"
	ComponentVTE     = "vte"
	ComponentGrid    = "grid"
	ComponentControl = "ctrl"
	ComponentDaemon  = "daemon"
	ComponentAtlas   = "atlas"
)

// Options configures New.
type Options struct {
	// Path to the log file. Empty disables file rotation and logs to
	// Stderr only.
	Path string
	// MaxSizeMB is the rotation threshold (spec.md §6: 10 MB).
	MaxSizeMB int
	// MaxBackups is the retained rotated-file count (spec.md §6: 3).
	MaxBackups int
}

// DefaultOptions returns the options spec.md §6 specifies for the daemon
// log: rotate at 10 MB, retain 3.
func DefaultOptions(path string) Options {
	return Options{Path: path, MaxSizeMB: 10, MaxBackups: 3}
}

// New builds a *log.Logger with the given component prefix, writing to
// both Stderr and (if Path is set) a rotating file.
func New(component string, opts Options) *log.Logger {
	var w io.Writer = os.Stderr
	if opts.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   false,
		}
		w = io.MultiWriter(os.Stderr, rotator)
	}
	return log.New(w, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)
}
