// Package timecodec converts between textual race times and durations in
// seconds, and formats durations back into event-appropriate strings.
package timecodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/paceline/internal/domain/catalog"
)

// Placeholder is rendered for durations that cannot be displayed.
const Placeholder = "-"

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	maxSegments      = 3
)

// Parse converts "12.34", "16:45.2" or "1:15:30" into seconds.
// The rightmost segment holds (possibly fractional) seconds, the segments to
// its left integer minutes and then integer hours. Decimal commas are
// accepted. Anything else yields ErrNotATime.
func Parse(text string) (float64, error) {
	t := strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if t == "" {
		return 0, ErrNotATime
	}
	parts := strings.Split(t, ":")
	if len(parts) > maxSegments {
		return 0, fmt.Errorf("%q: too many segments: %w", text, ErrNotATime)
	}

	secPart := strings.TrimSpace(parts[len(parts)-1])
	if !isDecimal(secPart) {
		return 0, fmt.Errorf("%q: %w", text, ErrNotATime)
	}
	sec, err := strconv.ParseFloat(secPart, 64)
	if err != nil || math.IsInf(sec, 0) || math.IsNaN(sec) {
		return 0, fmt.Errorf("%q: %w", text, ErrNotATime)
	}

	total := sec
	multipliers := [...]float64{secondsPerMinute, secondsPerHour}
	for i := len(parts) - 2; i >= 0; i-- {
		seg := strings.TrimSpace(parts[i])
		if !isDigits(seg) {
			return 0, fmt.Errorf("%q: %w", text, ErrNotATime)
		}
		n, err := strconv.Atoi(seg)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", text, ErrNotATime)
		}
		total += float64(n) * multipliers[len(parts)-2-i]
	}

	if total <= 0 {
		return 0, fmt.Errorf("%q: non-positive duration: %w", text, ErrNotATime)
	}
	return total, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) float64 {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Valid reports whether seconds is a displayable duration.
func Valid(seconds float64) bool {
	return !math.IsNaN(seconds) && !math.IsInf(seconds, 0) && seconds > 0
}

// Format renders seconds according to the display format.
func Format(seconds float64, f catalog.DisplayFormat) string {
	if !Valid(seconds) {
		return Placeholder
	}
	switch f {
	case catalog.Seconds:
		return strconv.FormatFloat(seconds, 'f', 2, 64)
	case catalog.HourMinSec:
		total := int64(math.Round(seconds))
		h := total / secondsPerHour
		m := (total % secondsPerHour) / secondsPerMinute
		s := total % secondsPerMinute
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	default:
		// hundredths keep 59.996 from printing as "x:60.00"
		hundredths := int64(math.Round(seconds * 100))
		m := hundredths / (secondsPerMinute * 100)
		rem := float64(hundredths%(secondsPerMinute*100)) / 100
		return fmt.Sprintf("%d:%05.2f", m, rem)
	}
}

// FormatEvent renders seconds in the display format of event. Events missing
// from the catalog fall back to H:MM:SS for an hour or more, M:SS.ss below.
func FormatEvent(seconds float64, event string) string {
	if e, ok := catalog.Lookup(event); ok {
		return Format(seconds, e.Format)
	}
	if seconds >= secondsPerHour {
		return Format(seconds, catalog.HourMinSec)
	}
	return Format(seconds, catalog.MinSec)
}

// FormatPace renders a pace in seconds per kilometre as "M:SS/km".
func FormatPace(secondsPerKm float64) string {
	if !Valid(secondsPerKm) {
		return Placeholder
	}
	total := int64(math.Round(secondsPerKm))
	return fmt.Sprintf("%d:%02d/km", total/secondsPerMinute, total%secondsPerMinute)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDecimal accepts "12", "12.", ".5" and "12.34" but no signs, exponents or
// hex notation that strconv would otherwise let through.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
