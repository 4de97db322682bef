package score

import "errors"

var (
	// ErrInvariantViolation is returned when a mutation would break note bounds.
	// The model is left unchanged.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNoteNotFound is returned for unknown note ids
	ErrNoteNotFound = errors.New("note not found")
)
