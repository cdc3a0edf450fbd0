// Package errs defines the error vocabulary shared by the daemon and the CLI
// boundary: typed error kinds, error codes, and process exit codes.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// UsageError marks a malformed invocation. It survives %w wrapping and always
// maps to exit code 2.
type UsageError struct {
	msg string
}

// NewUsageError constructs a usage error with the given message.
func NewUsageError(msg string) *UsageError {
	return &UsageError{msg: msg}
}

// Usagef constructs a usage error from a format string.
func Usagef(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string {
	return e.msg
}

// WorkspaceError marks the absence of a resolvable active workspace.
type WorkspaceError struct {
	msg string
}

// NewWorkspaceError constructs a workspace error with the given message.
func NewWorkspaceError(msg string) *WorkspaceError {
	return &WorkspaceError{msg: msg}
}

// Workspacef constructs a workspace error from a format string.
func Workspacef(format string, args ...any) *WorkspaceError {
	return &WorkspaceError{msg: fmt.Sprintf(format, args...)}
}

func (e *WorkspaceError) Error() string {
	return e.msg
}

// IsUsage reports whether err carries a UsageError anywhere in its chain.
func IsUsage(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// IsWorkspace reports whether err carries a WorkspaceError anywhere in its chain.
func IsWorkspace(err error) bool {
	var ws *WorkspaceError
	return errors.As(err, &ws)
}

// Timeoutf builds an error whose message classifies as TIMEOUT.
func Timeoutf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if !strings.Contains(strings.ToLower(msg), "timed out") && !strings.Contains(strings.ToLower(msg), "timeout") {
		msg += " (timed out)"
	}
	return errors.New(msg)
}
