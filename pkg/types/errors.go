package types

import "errors"

// Domain errors for type validation
var (
	ErrNilResult    = errors.New("result is nil")
	ErrInvalidScore = errors.New("total score must be between 0 and 1")
	ErrInvalidKind  = errors.New("invalid item kind")
	ErrEmptyKey     = errors.New("item key cannot be empty")
)
