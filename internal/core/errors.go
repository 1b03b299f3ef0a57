package core

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// Predefined Error Values
// =============================================================================

var (
	// ErrGenerationUnavailable means the backend could not serve the
	// request at all (network failure, server error, timeout). Worth
	// retrying as-is.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrGenerationRejected means the backend refused this particular
	// request (bad input, policy refusal). Retrying the same prompt
	// will not help; the orchestrator must change the request.
	ErrGenerationRejected = errors.New("generation rejected")
)

// =============================================================================
// Core Error Types
// =============================================================================

// SceneError wraps a generation failure with the scene it struck and how
// many attempts were spent before giving up.
type SceneError struct {
	SceneIndex int
	Attempts   int
	Err        error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("scene %d failed after %d attempts: %v", e.SceneIndex, e.Attempts, e.Err)
}

func (e *SceneError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Error Classification Functions
// =============================================================================

// IsUnavailable reports whether err stems from backend unavailability.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrGenerationUnavailable)
}

// IsRejected reports whether the backend refused the request.
func IsRejected(err error) bool {
	return errors.Is(err, ErrGenerationRejected)
}

// IsRecoverable reports whether the orchestrator may keep going after
// err: unavailability by retrying, rejection by changing the prompt.
// Cancellation is never recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsUnavailable(err) || IsRejected(err)
}
