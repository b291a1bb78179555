package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrLimit        = errors.New("session limit reached")
	ErrTooMany      = errors.New("too many observations")
	ErrInvalid      = errors.New("invalid session data")
	ErrSchema       = errors.New("score table schema")
	ErrNonMonotonic = errors.New("score table points rise with time")
)
