package scoring

import (
	"fmt"

	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/timecodec"
)

// Reasons attached to observations that could not be scored.
const (
	ReasonNotATime    = "not_a_time"
	ReasonNoReference = "no_reference"
)

// Scored pairs an observation with its table points.
type Scored struct {
	Observation model.Observation `json:"observation"`
	Points      float64           `json:"points"`
	OK          bool              `json:"ok"`
	Reason      string            `json:"reason,omitempty"`
}

// Summary holds aggregate points over the scored entries.
type Summary struct {
	Best  Scored  `json:"best"`
	Worst Scored  `json:"worst"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Prediction is a time backed out from mean points.
type Prediction struct {
	Event       string   `json:"event"`
	MeanPoints  float64  `json:"mean_points"`
	TierPoints  float64  `json:"tier_points"`
	TimeSeconds float64  `json:"time_s"`
	Formatted   string   `json:"formatted"`
	Basis       []string `json:"basis"`
}

// ScoreAll looks up points for every observation under gender. Entries that
// have no time or no reference rows are returned with OK false.
func ScoreAll(t *Table, observations []model.Observation, gender model.Gender) []Scored {
	out := make([]Scored, 0, len(observations))
	for _, o := range observations {
		s := Scored{Observation: o}
		switch {
		case !o.HasTime():
			s.Reason = ReasonNotATime
		default:
			p, err := t.LookupPoints(gender, o.Event, o.Seconds)
			if err != nil {
				s.Reason = ReasonNoReference
				break
			}
			s.Points, s.OK = p, true
		}
		out = append(out, s)
	}
	return out
}

// Summarize returns the best, worst and mean over the OK entries. Ties keep
// the earliest entry.
func Summarize(scored []Scored) (Summary, error) {
	var (
		sum Summary
		tot float64
	)
	for _, s := range scored {
		if !s.OK {
			continue
		}
		if sum.Count == 0 || s.Points > sum.Best.Points {
			sum.Best = s
		}
		if sum.Count == 0 || s.Points < sum.Worst.Points {
			sum.Worst = s
		}
		tot += s.Points
		sum.Count++
	}
	if sum.Count == 0 {
		return Summary{}, ErrNoData
	}
	sum.Mean = tot / float64(sum.Count)
	return sum, nil
}

// PredictForTarget averages the points of the OK entries in selected and
// returns the table time for that average at target.
func PredictForTarget(t *Table, selected []Scored, gender model.Gender, target string) (Prediction, error) {
	var (
		tot   float64
		basis []string
	)
	for _, s := range selected {
		if !s.OK {
			continue
		}
		tot += s.Points
		basis = append(basis, s.Observation.Event)
	}
	if len(basis) == 0 {
		return Prediction{}, fmt.Errorf("predict %s: empty selection: %w", target, ErrNoData)
	}

	mean := tot / float64(len(basis))
	r, err := t.invert(gender, target, mean)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	return Prediction{
		Event:       target,
		MeanPoints:  mean,
		TierPoints:  r.Points,
		TimeSeconds: r.TimeSeconds,
		Formatted:   timecodec.FormatEvent(r.TimeSeconds, target),
		Basis:       basis,
	}, nil
}
