package shared

import "errors"

var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrInvalidID  = errors.New("invalid ID")
	// ErrInUse means the entity is referenced by live data and cannot be removed.
	ErrInUse = errors.New("resource is in use")
)
