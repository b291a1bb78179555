// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/paceline/internal/domain/catalog"
	"github.com/okian/paceline/internal/domain/timecodec"
)

// Source records where an observation came from.
type Source string

// Observation sources.
const (
	SourceManual         Source = "manual"
	SourceWorldAthletics Source = "world_athletics"
)

// Observation is one performance record.
type Observation struct {
	Event    string `json:"event"`
	TimeText string `json:"time"`
	// Seconds is derived from TimeText; NaN when the text is not a time.
	Seconds float64 `json:"-"`
	Gender  Gender  `json:"gender"`
	Date    string  `json:"date,omitempty"` // ISO date when known
	// Score is the WA score printed on a profile page, 0 when absent.
	Score  float64 `json:"score,omitempty"`
	Source Source  `json:"source"`
}

// NewObservation validates event against the catalog and derives Seconds
// from text. Unparsable text is not an error: the observation is kept and
// marked as having no time.
func NewObservation(event, text string, g Gender, src Source) (Observation, error) {
	if !catalog.Has(event) {
		return Observation{}, fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}
	o := Observation{
		Event:    event,
		TimeText: text,
		Seconds:  math.NaN(),
		Gender:   g,
		Source:   src,
	}
	s, err := timecodec.Parse(text)
	switch {
	case err == nil:
		o.Seconds = s
	case !errors.Is(err, timecodec.ErrNotATime):
		return Observation{}, err
	}
	return o, nil
}

// HasTime reports whether the observation carries a usable duration.
func (o Observation) HasTime() bool {
	return timecodec.Valid(o.Seconds)
}

// DistanceMeters returns the catalog distance of the observation's event.
func (o Observation) DistanceMeters() float64 {
	d, _ := catalog.Distance(o.Event)
	return d
}

// Formatted renders Seconds in the event's display format.
func (o Observation) Formatted() string {
	return timecodec.FormatEvent(o.Seconds, o.Event)
}
