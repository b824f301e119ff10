package jobs

import (
	"errors"
	"fmt"
	"os/exec"
)

// ExecExitCode is the conventional status of a command that could not be run.
const ExecExitCode = 127

var (
	// ErrNotFound is returned when no record matches a pid.
	ErrNotFound = errors.New("no such job")
	// ErrAlreadyReleased is returned on a second release of a record.
	ErrAlreadyReleased = errors.New("record already released")
	// ErrNotOwner is returned when a release is attempted by the wrong owner.
	ErrNotOwner = errors.New("caller does not own record")
)

// ExecError reports a command that could not be executed.
type ExecError struct {
	Target string
	Err    error
}

func (e *ExecError) Error() string {
	if errors.Is(e.Err, exec.ErrNotFound) {
		return e.Target + ": command not found"
	}
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExitCode returns the status the shell reports for a failed exec.
func (e *ExecError) ExitCode() int {
	return ExecExitCode
}

// ResourceError reports that the system could not create a process.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// OwnershipError describes a rejected release.
type OwnershipError struct {
	PID    int
	Owner  Owner
	Caller Owner
	Err    error
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("release of pid %d by %s (owner %s): %v", e.PID, e.Caller, e.Owner, e.Err)
}

func (e *OwnershipError) Unwrap() error {
	return e.Err
}
