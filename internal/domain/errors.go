package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid identifier")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoPairs: a commit call with no syntactically valid pair at all is a
	// validation failure, not an empty success.
	ErrNoPairs = errors.New("no valid match pairs")
)
