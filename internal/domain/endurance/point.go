// Package endurance fits the two-parameter critical speed model and the
// Riegel power-law model to timed race performances.
package endurance

import "math"

// Point is one timed performance.
type Point struct {
	Event          string  `json:"event,omitempty"`
	DistanceMeters float64 `json:"distance_m"`
	TimeSeconds    float64 `json:"time_s"`
}

func (p Point) valid() bool {
	return positive(p.DistanceMeters) && positive(p.TimeSeconds)
}

func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
