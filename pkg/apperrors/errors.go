package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrContentTooLong  = errors.New("content exceeds maximum length")
	ErrMissingAgent    = errors.New("agent is required")
	ErrEntryNotTrained = errors.New("training entry has no embedding")
)
