// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Orchestration errors.
	ErrRunTerminal       = errors.New("run is in a terminal state")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrPipelineBusy      = errors.New("pipeline already running")

	// Advisor errors.
	ErrAdvisorUnavailable = errors.New("advisor collaborator unavailable")

	// Archive errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationMismatch records a non-fatal cross-check discrepancy found by
// the validation stage. It is logged and tagged for risk analysis but does
// not halt the pipeline.
type ValidationMismatch struct {
	Field    string
	Expected string
	Actual   string
}

func (e *ValidationMismatch) Error() string {
	return fmt.Sprintf("validation mismatch on %s: expected %q, got %q", e.Field, e.Expected, e.Actual)
}

// StageError is fatal to the current phase: the run transitions to Failed
// and forward progress requires an explicit user-triggered restart.
type StageError struct {
	Err   error
	Stage string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err as a fatal failure of the named stage.
func NewStageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// TransmissionError is a filing failure at or after the transmit step. It
// must be distinguished from pre-transmit failures: a submission may have
// partially left the building, so the run is flagged for manual
// reconciliation instead of a clean restart.
type TransmissionError struct {
	Err error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("transmission failed: %v", e.Err)
}

func (e *TransmissionError) Unwrap() error {
	return e.Err
}

// IsTransmissionError reports whether err is (or wraps) a transmission
// failure requiring manual intervention.
func IsTransmissionError(err error) bool {
	var te *TransmissionError
	return errors.As(err, &te)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
