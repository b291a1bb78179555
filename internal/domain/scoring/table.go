// Package scoring maps race times to World Athletics points and back, and
// aggregates points across a set of observations.
package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/okian/paceline/internal/domain/model"
)

// Row is one reference performance of a scoring table.
type Row struct {
	Gender      model.Gender `json:"gender"`
	Event       string       `json:"event"`
	TimeSeconds float64      `json:"time_s"`
	Points      float64      `json:"points"`
}

type groupKey struct {
	gender model.Gender
	event  string
}

type group struct {
	byTime   []Row // time ascending
	byPoints []Row // points descending
}

// Violation reports a (gender, event) group whose points rise with time.
type Violation struct {
	Gender model.Gender `json:"gender"`
	Event  string       `json:"event"`
	// Faster and Slower are the first adjacent rows out of order.
	Faster Row `json:"faster"`
	Slower Row `json:"slower"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s/%s: %.2fs=%g < %.2fs=%g",
		v.Gender, v.Event, v.Faster.TimeSeconds, v.Faster.Points, v.Slower.TimeSeconds, v.Slower.Points)
}

// Table is an immutable scoring table indexed by gender and event. It is
// safe for concurrent use once built.
type Table struct {
	groups     map[groupKey]group
	rows       int
	violations []Violation
}

// NewTable indexes rows. Rows with a non-finite time or points value are
// ignored. The caller's slice is not retained.
func NewTable(rows []Row) *Table {
	t := &Table{groups: make(map[groupKey]group)}
	for _, r := range rows {
		if !finite(r.TimeSeconds) || !finite(r.Points) {
			continue
		}
		k := groupKey{gender: r.Gender, event: r.Event}
		g := t.groups[k]
		g.byTime = append(g.byTime, r)
		t.groups[k] = g
		t.rows++
	}

	for k, g := range t.groups {
		sort.SliceStable(g.byTime, func(i, j int) bool {
			if g.byTime[i].TimeSeconds != g.byTime[j].TimeSeconds {
				return g.byTime[i].TimeSeconds < g.byTime[j].TimeSeconds
			}
			return g.byTime[i].Points > g.byTime[j].Points
		})
		g.byPoints = slices.Clone(g.byTime)
		sort.SliceStable(g.byPoints, func(i, j int) bool {
			if g.byPoints[i].Points != g.byPoints[j].Points {
				return g.byPoints[i].Points > g.byPoints[j].Points
			}
			return g.byPoints[i].TimeSeconds < g.byPoints[j].TimeSeconds
		})
		t.groups[k] = g

		for i := 1; i < len(g.byTime); i++ {
			if g.byTime[i].Points > g.byTime[i-1].Points {
				t.violations = append(t.violations, Violation{
					Gender: k.gender,
					Event:  k.event,
					Faster: g.byTime[i-1],
					Slower: g.byTime[i],
				})
				break
			}
		}
	}
	slices.SortFunc(t.violations, func(a, b Violation) int {
		return cmp.Or(cmp.Compare(a.Gender, b.Gender), cmp.Compare(a.Event, b.Event))
	})
	return t
}

// Len returns the number of indexed rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Has reports whether the table holds rows for gender and event.
func (t *Table) Has(gender model.Gender, event string) bool {
	_, ok := t.group(gender, event)
	return ok
}

// LookupPoints returns the points of the first row, in ascending time order,
// whose time is no faster than seconds. A time faster than every row scores
// the fastest row; a time slower than every row scores the slowest row.
func (t *Table) LookupPoints(gender model.Gender, event string, seconds float64) (float64, error) {
	g, ok := t.group(gender, event)
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", gender, event, ErrNotFound)
	}
	if !finite(seconds) {
		return 0, fmt.Errorf("%s/%s: time %v: %w", gender, event, seconds, ErrNotFound)
	}
	idx := sort.Search(len(g.byTime), func(i int) bool {
		return g.byTime[i].TimeSeconds >= seconds
	})
	if idx == len(g.byTime) {
		idx--
	}
	return g.byTime[idx].Points, nil
}

// InvertPoints returns the time of the first row, in descending points order,
// whose points do not exceed target. A target below every row clamps to the
// lowest-scoring row.
func (t *Table) InvertPoints(gender model.Gender, event string, target float64) (float64, error) {
	r, err := t.invert(gender, event, target)
	if err != nil {
		return 0, err
	}
	return r.TimeSeconds, nil
}

func (t *Table) invert(gender model.Gender, event string, target float64) (Row, error) {
	g, ok := t.group(gender, event)
	if !ok {
		return Row{}, fmt.Errorf("%s/%s: %w", gender, event, ErrNotFound)
	}
	if math.IsNaN(target) {
		return Row{}, fmt.Errorf("%s/%s: points NaN: %w", gender, event, ErrNotFound)
	}
	idx := sort.Search(len(g.byPoints), func(i int) bool {
		return g.byPoints[i].Points <= target
	})
	if idx == len(g.byPoints) {
		idx--
	}
	return g.byPoints[idx], nil
}

// Violations lists the groups whose points are not non-increasing in time.
func (t *Table) Violations() []Violation {
	if t == nil {
		return nil
	}
	return slices.Clone(t.violations)
}

func (t *Table) group(gender model.Gender, event string) (group, bool) {
	if t == nil {
		return group{}, false
	}
	g, ok := t.groups[groupKey{gender: gender, event: event}]
	return g, ok && len(g.byTime) > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
