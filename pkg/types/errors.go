package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingID          = errors.New("missing ID")
	ErrMissingCategory    = errors.New("missing category slug")
	ErrMissingURL         = errors.New("page payloads require a URL")
	ErrInvalidContextType = errors.New("invalid context type")
	ErrInvalidRank        = errors.New("rank must be >= 1")
	ErrInvalidScore       = errors.New("score must be between -1 and 1")
	ErrEmptyContent       = errors.New("content cannot be empty")
)
