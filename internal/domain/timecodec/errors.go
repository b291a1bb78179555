package timecodec

import "errors"

// ErrNotATime marks text that does not describe a duration. Callers treat it
// as missing data, not as a failure.
var ErrNotATime = errors.New("not a time")
