package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed indicates semantically invalid input.
	ErrValidationFailed = errors.New("validation failed")
)
