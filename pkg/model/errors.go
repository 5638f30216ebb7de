package model

import "errors"

// Error taxonomy surfaced to callers. Services wrap these with context via
// fmt.Errorf("...: %w", err); handlers map them to HTTP status codes.
var (
	// ErrNotFound indicates a missing service user, medication, or settings scope.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a non-positive quantity, malformed date
	// range, or end date before start date.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotActive indicates an operation against a deactivated medication.
	ErrNotActive = errors.New("medication not active")

	// ErrConflict indicates a duplicate dispense within the idempotency
	// window of a scheduled administration slot.
	ErrConflict = errors.New("conflict")
)
