package endurance

import (
	"fmt"
	"sort"
)

const metersPerKm = 1000.0

// CriticalSpeedResult holds the fitted distance = CS*time + D' line.
type CriticalSpeedResult struct {
	// CS is the slope in metres per second. It is reported as fitted, even
	// when noise makes it non-positive.
	CS float64 `json:"cs_mps"`
	// DPrime is the intercept in metres; advisory only.
	DPrime float64 `json:"d_prime_m"`
	// PaceSecondsPerKm is 1000/CS, or 0 when CS is not positive.
	PaceSecondsPerKm float64 `json:"pace_s_per_km"`
	// RSquared is the coefficient of determination of the fit.
	RSquared float64 `json:"r_squared"`
	Points   int     `json:"points"`
}

// CriticalSpeed fits distance against time by ordinary least squares.
// Two points reduce to the exact line through both. The result does not
// depend on the order of points.
func CriticalSpeed(points []Point) (CriticalSpeedResult, error) {
	if len(points) < 2 {
		return CriticalSpeedResult{}, fmt.Errorf("critical speed needs 2+ points, got %d: %w", len(points), ErrUndetermined)
	}

	// Summation order is fixed so permutations give bit-identical output.
	ps := make([]Point, len(points))
	copy(ps, points)
	for _, p := range ps {
		if !p.valid() {
			return CriticalSpeedResult{}, fmt.Errorf("critical speed: non-positive input %+v: %w", p, ErrUndetermined)
		}
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].TimeSeconds != ps[j].TimeSeconds {
			return ps[i].TimeSeconds < ps[j].TimeSeconds
		}
		return ps[i].DistanceMeters < ps[j].DistanceMeters
	})

	n := float64(len(ps))
	var sumX, sumY float64
	for _, p := range ps {
		sumX += p.TimeSeconds
		sumY += p.DistanceMeters
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy, syy float64
	for _, p := range ps {
		dx := p.TimeSeconds - meanX
		dy := p.DistanceMeters - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return CriticalSpeedResult{}, fmt.Errorf("critical speed: all times equal: %w", ErrUndetermined)
	}

	cs := sxy / sxx
	if !finite(cs) || !finite(meanY-cs*meanX) {
		return CriticalSpeedResult{}, fmt.Errorf("critical speed: fit overflows: %w", ErrUndetermined)
	}
	res := CriticalSpeedResult{
		CS:       cs,
		DPrime:   meanY - cs*meanX,
		Points:   len(ps),
		RSquared: 1,
	}
	if syy > 0 {
		res.RSquared = (sxy * sxy) / (sxx * syy)
	}
	if cs > 0 {
		res.PaceSecondsPerKm = metersPerKm / cs
	}
	return res, nil
}
