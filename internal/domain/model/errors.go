package model

import "errors"

var (
	// ErrUnknownEvent is returned for events missing from the catalog.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrUnknownGender is returned when a gender label cannot be resolved.
	ErrUnknownGender = errors.New("unknown gender")
)
