package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrEmptyBinary is returned by New when no program name is given.
var ErrEmptyBinary = errors.New("launcher binary is required")

// SpawnError reports a child that could not be started at all.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// NotFound reports whether the binary could not be resolved.
func (e *SpawnError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist)
}

// Reason classifies the failure for logs and metrics.
func (e *SpawnError) Reason() string {
	switch {
	case e.NotFound():
		return "not_found"
	case errors.Is(e.Err, fs.ErrPermission):
		return "permission"
	default:
		return "other"
	}
}

// StderrError carries everything a child wrote to its standard error.
// Any stderr output marks the invocation as failed, whatever its exit code.
type StderrError struct {
	Text string
	Code int
}

func (e *StderrError) Error() string { return e.Text }

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
// A child terminated by a signal reports -1.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
