package models

import "errors"

// Failure taxonomy for billing operations. Services wrap these with context
// via fmt.Errorf("...: %w", err); the API layer maps them to HTTP statuses
// with errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input (empty cart,
	// negative return quantity). Detected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown invoice, customer, or register day.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a lost atomic check-and-set: double return,
	// duplicate register open, concurrent update collision. Retryable.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientBalance marks a loyalty redemption exceeding the
	// customer's point balance.
	ErrInsufficientBalance = errors.New("insufficient loyalty balance")

	// ErrTimeout marks an unresponsive external store. Retryable; program
	// state is unaffected.
	ErrTimeout = errors.New("store timeout")
)
