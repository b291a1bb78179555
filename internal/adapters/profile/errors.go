package profile

import "errors"

// Sentinel kinds for profile import errors.
var (
	ErrInvalidURL = errors.New("invalid profile url")
	ErrStatus     = errors.New("unexpected profile status")
	ErrParse      = errors.New("profile page parse failed")
)
