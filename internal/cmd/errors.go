// Package cmd holds the cobra command trees shared by the scarab-daemon
// and scarab-client binaries, grounded on the teacher's internal/cmd
// package (one file per subcommand, a NewRootCmd-style constructor, and
// typed errors mapped to process exit codes).
package cmd

import (
	"errors"
	"fmt"
)

// ExitError pairs a user-facing message with the process exit code
// spec.md §6 assigns it (0 normal, 2 config error, 3 socket-bind
// conflict, 4 shared-memory error).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func configError(format string, args ...any) error {
	return &ExitError{Code: 2, Err: fmt.Errorf(format, args...)}
}

func socketConflictError(format string, args ...any) error {
	return &ExitError{Code: 3, Err: fmt.Errorf(format, args...)}
}

func sharedMemoryError(format string, args ...any) error {
	return &ExitError{Code: 4, Err: fmt.Errorf(format, args...)}
}

// ExitCodeFor extracts the process exit code for err, defaulting to 1 for
// any error not raised through ExitError (an unclassified failure still
// exits non-zero, just without a specific spec.md code).
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
