package board

import (
	"errors"
	"fmt"
)

// Sentinel errors for board fetch operations.
var (
	// ErrTransient indicates a retryable failure: connectivity loss,
	// timeout, or upstream throttling. The orchestrator retries these
	// according to its retry policy.
	ErrTransient = errors.New("transient fetch failure")

	// ErrPermanent indicates a non-retryable failure. Bad credentials,
	// malformed responses, and client errors fall in this class.
	ErrPermanent = errors.New("permanent fetch failure")
)

// Error wraps board-specific errors with context.
type Error struct {
	// Op is the operation that failed (e.g., "Fetch").
	Op string

	// Board is the board identifier, if known.
	Board string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Board != "" {
		return fmt.Sprintf("%s %s: %v", e.Board, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient returns true if the error is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent returns true if the error is a non-retryable fetch failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
