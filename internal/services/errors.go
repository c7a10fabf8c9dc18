package services

import "errors"

// Failure classes surfaced to clients. Anything not wrapping one of these
// is treated as an internal error and reported generically.
var (
	ErrAccessDenied           = errors.New("you do not have access to this room")
	ErrInsufficientPermission = errors.New("insufficient permissions")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
)
