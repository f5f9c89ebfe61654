package errors

import (
	"errors"
	"fmt"
)

// Failure classes shared by the merge tool, the pipeline and the uploader.
// Callers wrap them with context and test with errors.Is.
var (
	ErrInputNotFound   = errors.New("input not found")
	ErrInputMalformed  = errors.New("input malformed")
	ErrExternalProcess = errors.New("external process failure")
	ErrNetwork         = errors.New("network failure")
	ErrPersistence     = errors.New("persistence failure")
)

// CommandError represents an error that occurred during command execution, storing relevant results.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      interface{}
	cause       error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// Unwrap exposes the underlying failure so errors.Is keeps working through the command boundary.
func (e *CommandError) Unwrap() error {
	return e.cause
}

// NewCommandError creates a new CommandError instance, encapsulating the result and the error message.
func NewCommandError(result interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Result:      result,
		cause:       err,
	}
}

// ExitCode extracts the process exit code carried by err; any other error maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 1
}

// Wrap attaches a failure class to err, keeping both reachable through errors.Is.
func Wrap(class error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", class, fmt.Sprintf(format, args...))
}
