package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoScoreTable     = errors.New("score table not loaded")
	ErrNoProfileClient  = errors.New("profile import disabled")
	ErrTooManySelected  = errors.New("too many events selected")
	ErrMissingEventTime = errors.New("no usable time for event")
)
