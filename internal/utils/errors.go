package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

var (
	// ErrDataInsufficient reports a telemetry buffer shorter than the requested window.
	// The pipeline withholds its prediction for the tick.
	ErrDataInsufficient = errors.New("insufficient telemetry history")
	// ErrModelUnavailable reports a predict call with no trained or loaded artifact.
	ErrModelUnavailable = errors.New("forecaster model unavailable")
	// ErrArtifactCorrupt reports a persisted artifact that failed its schema or shape checks.
	ErrArtifactCorrupt = errors.New("forecaster artifact corrupt")
	// ErrTrainingDataEmpty reports a training series that produced zero windows.
	ErrTrainingDataEmpty = errors.New("training data produced no windows")
)
