package scanner

import (
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"github.com/dockerscanner/scanner-bridge/internal/models"
)

// ErrCancelled is reported when the caller cancels an invocation before it finishes
var ErrCancelled = errors.New("scan cancelled")

// InvalidRequestError represents missing or empty required input.
// Hosts recover from it locally by prompting again.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid scan request: %s %s", e.Field, e.Message)
}

// LaunchError represents a scanner that could not be started at all
// (not found, not executable, permission denied)
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ProcessError represents a scanner that ran and exited with a failure status
type ProcessError struct {
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("scanner exited with code %d", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// OutputOverflowError represents a stream that produced more output than allowed
type OutputOverflowError struct {
	Stream models.Stream
	Limit  int64
}

func (e *OutputOverflowError) Error() string {
	return fmt.Sprintf("scanner %s exceeded %s", e.Stream, units.BytesSize(float64(e.Limit)))
}

// FailureKindOf maps an invocation error onto the outcome failure kind
func FailureKindOf(err error) models.FailureKind {
	if err == nil {
		return models.FailureNone
	}

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return models.FailureLaunch
	}

	var overflowErr *OutputOverflowError
	if errors.As(err, &overflowErr) {
		return models.FailureOverflow
	}

	if errors.Is(err, ErrCancelled) {
		return models.FailureCancelled
	}

	return models.FailureProcess
}
