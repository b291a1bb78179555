package endurance

import (
	"fmt"
	"math"
)

// RiegelResult is the fitted fatigue exponent and the extrapolated time.
type RiegelResult struct {
	K                float64 `json:"k"`
	TargetMeters     float64 `json:"target_m"`
	PredictedSeconds float64 `json:"predicted_s"`
	// Reference is the input performance closest in distance to the target.
	Reference Point `json:"reference"`
}

// Exponent returns k in time = a*distance^k for two performances.
func Exponent(a, b Point) (float64, error) {
	if !a.valid() || !b.valid() {
		return 0, fmt.Errorf("riegel: non-positive input: %w", ErrUndetermined)
	}
	if a.DistanceMeters == b.DistanceMeters {
		return 0, fmt.Errorf("riegel: equal distances %.0f m: %w", a.DistanceMeters, ErrUndetermined)
	}
	k := math.Log(b.TimeSeconds/a.TimeSeconds) / math.Log(b.DistanceMeters/a.DistanceMeters)
	if !finite(k) {
		return 0, fmt.Errorf("riegel: exponent %v: %w", k, ErrUndetermined)
	}
	return k, nil
}

// Riegel fits k from a and b and predicts the time at targetMeters from
// whichever input is closer to the target. Ties go to a.
func Riegel(a, b Point, targetMeters float64) (RiegelResult, error) {
	if !positive(targetMeters) {
		return RiegelResult{}, fmt.Errorf("riegel: target %v: %w", targetMeters, ErrUndetermined)
	}
	k, err := Exponent(a, b)
	if err != nil {
		return RiegelResult{}, err
	}

	ref := a
	if math.Abs(b.DistanceMeters-targetMeters) < math.Abs(a.DistanceMeters-targetMeters) {
		ref = b
	}
	predicted := ref.TimeSeconds * math.Pow(targetMeters/ref.DistanceMeters, k)
	if !finite(predicted) {
		return RiegelResult{}, fmt.Errorf("riegel: prediction overflows at k=%.3f: %w", k, ErrUndetermined)
	}
	return RiegelResult{
		K:                k,
		TargetMeters:     targetMeters,
		PredictedSeconds: predicted,
		Reference:        ref,
	}, nil
}
