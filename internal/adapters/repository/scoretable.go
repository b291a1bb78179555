package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/paceline/internal/domain/catalog"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/internal/domain/timecodec"
	"github.com/okian/paceline/pkg/logger"
	"github.com/okian/paceline/pkg/metrics"
)

// Reasons a score table row is skipped.
const (
	SkipShortRow     = "short_row"
	SkipBadGender    = "bad_gender"
	SkipUnknownEvent = "unknown_event"
	SkipBadTime      = "bad_time"
	SkipBadPoints    = "bad_points"
)

const ctxCheckEvery = 1024

// LoadReport describes what a score table load kept and dropped.
type LoadReport struct {
	Rows       int                 `json:"rows"`
	Skipped    map[string]int      `json:"skipped,omitempty"`
	Violations []scoring.Violation `json:"violations,omitempty"`
}

// SkippedTotal sums Skipped.
func (r LoadReport) SkippedTotal() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// LoadOption configures LoadScoreTable.
type LoadOption func(*loadSettings)

type loadSettings struct {
	strict bool
	log    logger.Logger
}

// WithStrict makes groups whose points rise with time fail the load.
func WithStrict(strict bool) LoadOption {
	return func(s *loadSettings) { s.strict = strict }
}

// WithLoadLogger reports skipped rows and violations to l.
func WithLoadLogger(l logger.Logger) LoadOption {
	return func(s *loadSettings) {
		if l != nil {
			s.log = l
		}
	}
}

// columns holds the header positions; -1 when absent.
type columns struct {
	gender, event, resultSec, result, points int
}

func (c columns) width() int {
	return max(c.gender, c.event, c.resultSec, c.result, c.points) + 1
}

func resolveColumns(header []string) (columns, error) {
	c := columns{-1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "gender":
			c.gender = i
		case "discipline":
			c.event = i
		case "event":
			if c.event < 0 {
				c.event = i
			}
		case "result_sec":
			c.resultSec = i
		case "result":
			c.result = i
		case "points":
			c.points = i
		case "score":
			if c.points < 0 {
				c.points = i
			}
		}
	}

	var missing []string
	if c.gender < 0 {
		missing = append(missing, "gender")
	}
	if c.event < 0 {
		missing = append(missing, "discipline|event")
	}
	if c.resultSec < 0 && c.result < 0 {
		missing = append(missing, "result_sec|result")
	}
	if c.points < 0 {
		missing = append(missing, "points|score")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing columns %s: %w", strings.Join(missing, ", "), ErrSchema)
	}
	return c, nil
}

// LoadScoreTable reads a WA score CSV. The header is validated up front;
// rows that cannot be used are skipped and counted in the report.
func LoadScoreTable(ctx context.Context, r io.Reader, opts ...LoadOption) (*scoring.Table, LoadReport, error) {
	st := loadSettings{log: logger.Nop()}
	for _, opt := range opts {
		opt(&st)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, LoadReport{}, fmt.Errorf("empty file: %w", ErrSchema)
		}
		return nil, LoadReport{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, LoadReport{}, err
	}

	report := LoadReport{Skipped: map[string]int{}}
	var rows []scoring.Row
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, LoadReport{}, fmt.Errorf("load score table: %w", err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("line %d: %w", line, err)
		}
		row, reason := parseRow(rec, cols)
		if reason != "" {
			report.Skipped[reason]++
			st.log.Debug(ctx, "score table row skipped", logger.Int("line", line), logger.String("reason", reason))
			continue
		}
		rows = append(rows, row)
	}

	table := scoring.NewTable(rows)
	report.Rows = table.Len()
	report.Violations = table.Violations()

	skipped := make([]string, 0, len(report.Skipped))
	for reason := range report.Skipped {
		skipped = append(skipped, reason)
	}
	sort.Strings(skipped)
	for _, reason := range skipped {
		metrics.RecordScoreTableSkipped(reason, report.Skipped[reason])
	}
	for _, v := range report.Violations {
		st.log.Warn(ctx, "score table not monotonic", logger.String("group", v.String()))
	}

	if st.strict && len(report.Violations) > 0 {
		return nil, report, fmt.Errorf("%d groups, first %s: %w", len(report.Violations), report.Violations[0], ErrNonMonotonic)
	}

	metrics.UpdateScoreTable(report.Rows, len(report.Violations))
	st.log.Info(ctx, "score table loaded",
		logger.Int("rows", report.Rows),
		logger.Int("skipped", report.SkippedTotal()),
		logger.Int("violations", len(report.Violations)),
	)
	return table, report, nil
}

// LoadScoreTableFile opens path and loads it with LoadScoreTable.
func LoadScoreTableFile(ctx context.Context, path string, opts ...LoadOption) (*scoring.Table, LoadReport, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open score table: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, rep, err := LoadScoreTable(ctx, f, opts...)
	if err != nil {
		return nil, rep, fmt.Errorf("%s: %w", path, err)
	}
	return t, rep, nil
}

func parseRow(rec []string, c columns) (scoring.Row, string) {
	if len(rec) < c.width() {
		return scoring.Row{}, SkipShortRow
	}
	g, err := model.ParseGender(rec[c.gender])
	if err != nil {
		return scoring.Row{}, SkipBadGender
	}
	event := strings.TrimSpace(rec[c.event])
	if !catalog.Has(event) {
		return scoring.Row{}, SkipUnknownEvent
	}
	secs, ok := parseResult(rec, c)
	if !ok {
		return scoring.Row{}, SkipBadTime
	}
	pts, err := parseNumber(rec[c.points])
	if err != nil || math.IsNaN(pts) || math.IsInf(pts, 0) {
		return scoring.Row{}, SkipBadPoints
	}
	return scoring.Row{Gender: g, Event: event, TimeSeconds: secs, Points: pts}, ""
}

// parseResult prefers the numeric result_sec column and falls back to the
// textual result column.
func parseResult(rec []string, c columns) (float64, bool) {
	if c.resultSec >= 0 {
		if v, err := parseNumber(rec[c.resultSec]); err == nil && timecodec.Valid(v) {
			return v, true
		}
	}
	if c.result >= 0 {
		if v, err := timecodec.Parse(rec[c.result]); err == nil {
			return v, true
		}
	}
	return 0, false
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
