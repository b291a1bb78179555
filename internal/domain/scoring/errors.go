package scoring

import "errors"

var (
	// ErrNotFound means the table has no usable rows for a (gender, event)
	// pair, or the time to look up is not finite.
	ErrNotFound = errors.New("no reference rows")
	// ErrNoData means there was nothing to aggregate.
	ErrNoData = errors.New("no data")
)
