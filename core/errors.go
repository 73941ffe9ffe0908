package core

import (
	"errors"
	"fmt"
)

// Sentinel domain errors. Callers branch with errors.Is.
var (
	// ErrNotFound means the user has no progression document. Documents are
	// created at account creation, so this is a data error for the request.
	ErrNotFound = errors.New("progression not found")

	// ErrInsufficientFunds rejects a shield purchase the user cannot afford.
	ErrInsufficientFunds = errors.New("insufficient points")

	// ErrShieldCapReached rejects a shield purchase at the shield cap.
	ErrShieldCapReached = errors.New("shield cap reached")

	// ErrNoShieldsAvailable rejects using a shield with none in stock.
	ErrNoShieldsAvailable = errors.New("no shields available")

	// ErrConflictExhausted means a store transaction could not converge
	// within its retry budget. Transient; the caller may retry the whole
	// operation from scratch.
	ErrConflictExhausted = errors.New("transaction conflict retries exhausted")

	// ErrTitleLocked rejects activating a title tier never reached.
	ErrTitleLocked = errors.New("title not unlocked")
)

// ValidationError flags a malformed event or request, rejected before any
// store access.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
