// Package types contains request and response shapes shared by the HTTP API,
// the CLI and the analysis service.
package types

import (
	"github.com/okian/paceline/internal/domain/endurance"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
)

// ObservationInput is one performance as typed by a user.
type ObservationInput struct {
	Event string  `json:"event"`
	Time  string  `json:"time"`
	Date  string  `json:"date,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Rejection explains why an input was not stored.
type Rejection struct {
	Event  string `json:"event"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// AddResult summarizes an append to a session.
type AddResult struct {
	Added      int         `json:"added"`
	Duplicates int         `json:"duplicates"`
	Rejected   []Rejection `json:"rejected,omitempty"`
}

// EventInfo describes one catalog event.
type EventInfo struct {
	Name           string  `json:"name"`
	DistanceMeters float64 `json:"distance_m"`
	Format         string  `json:"format"`
}

// ObservationView is an observation with its derived, displayable time.
type ObservationView struct {
	model.Observation
	Seconds   *float64 `json:"seconds,omitempty"` // nil when not a time
	Formatted string   `json:"formatted"`
}

// NewObservationView derives the view of o.
func NewObservationView(o model.Observation) ObservationView {
	v := ObservationView{Observation: o, Formatted: o.Formatted()}
	if o.HasTime() {
		s := o.Seconds
		v.Seconds = &s
	}
	return v
}

// ScoreReport is the scored observation list with its summary. Summary is
// nil when nothing could be scored.
type ScoreReport struct {
	Gender  model.Gender     `json:"gender"`
	Scored  []scoring.Scored `json:"scored"`
	Summary *scoring.Summary `json:"summary,omitempty"`
}

// CriticalSpeedView adds display strings to a critical speed fit.
type CriticalSpeedView struct {
	endurance.CriticalSpeedResult
	Pace   string   `json:"pace"`
	Events []string `json:"events"`
}

// RiegelView adds display strings to a Riegel prediction.
type RiegelView struct {
	endurance.RiegelResult
	TargetEvent string `json:"target_event"`
	Formatted   string `json:"formatted"`
}

// RiegelRequest names the two performances and the target of a Riegel fit.
type RiegelRequest struct {
	EventA string `json:"event_a"`
	EventB string `json:"event_b"`
	Target string `json:"target"`
}

// ReportRequest carries the personal fields of an export report.
type ReportRequest struct {
	Name   string         `json:"name"`
	Age    int            `json:"age"`
	Riegel *RiegelRequest `json:"riegel,omitempty"`
}

// Report is the aggregate an export document is rendered from. Model
// sections are omitted when they could not be computed.
type Report struct {
	Name          string             `json:"name"`
	Age           int                `json:"age"`
	Gender        model.Gender       `json:"gender"`
	Observations  []ObservationView  `json:"observations"`
	CriticalSpeed *CriticalSpeedView `json:"critical_speed,omitempty"`
	Riegel        *RiegelView        `json:"riegel,omitempty"`
	Scores        []scoring.Scored   `json:"scores"`
	Summary       *scoring.Summary   `json:"summary,omitempty"`
}

// Stats is a point-in-time view of service state.
type Stats struct {
	Sessions       int  `json:"sessions"`
	ScoreTableRows int  `json:"score_table_rows"`
	Violations     int  `json:"score_table_violations"`
	ProfileImport  bool `json:"profile_import"`
	MaxSelected    int  `json:"max_selected"`
}
