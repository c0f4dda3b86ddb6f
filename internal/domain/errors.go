package domain

import "errors"

// Error kinds returned by the training core. Details are attached with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrNoActiveExercise  = errors.New("no active exercise")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)
