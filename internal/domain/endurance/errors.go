package endurance

import "errors"

// ErrUndetermined is returned when a model cannot be fitted: too few
// observations, equal distances or times, or non-positive inputs.
var ErrUndetermined = errors.New("model undetermined")
