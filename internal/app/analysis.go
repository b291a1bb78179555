package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/okian/paceline/internal/domain/catalog"
	"github.com/okian/paceline/internal/domain/endurance"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/internal/domain/timecodec"
	"github.com/okian/paceline/internal/domain/types"
	"github.com/okian/paceline/pkg/logger"
	"github.com/okian/paceline/pkg/metrics"
)

// Analysis kinds used as metric labels.
const (
	KindScores        = "scores"
	KindCriticalSpeed = "critical_speed"
	KindRiegel        = "riegel"
	KindPredict       = "predict"
	KindReport        = "report"
)

// Scores looks up WA points for every observation of the session.
func (s *Service) Scores(ctx context.Context, id string) (types.ScoreReport, error) {
	start := time.Now()
	rep, err := s.scores(ctx, id)
	return rep, s.record(ctx, KindScores, start, err)
}

func (s *Service) scores(ctx context.Context, id string) (types.ScoreReport, error) {
	t, err := s.scoreTable()
	if err != nil {
		return types.ScoreReport{}, err
	}
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return types.ScoreReport{}, err
	}

	scored := scoring.ScoreAll(t, sess.Observations, sess.Gender)
	for _, sc := range scored {
		if sc.Reason == scoring.ReasonNoReference {
			metrics.RecordLookupNotFound()
		}
	}
	rep := types.ScoreReport{Gender: sess.Gender, Scored: scored}
	if sum, err := scoring.Summarize(scored); err == nil {
		rep.Summary = &sum
	}
	return rep, nil
}

// CriticalSpeed fits the critical speed model over the named events, or
// over every timed observation when events is empty.
func (s *Service) CriticalSpeed(ctx context.Context, id string, events []string) (types.CriticalSpeedView, error) {
	start := time.Now()
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return types.CriticalSpeedView{}, s.record(ctx, KindCriticalSpeed, start, err)
	}
	v, err := criticalSpeed(sess.Observations, events)
	return v, s.record(ctx, KindCriticalSpeed, start, err)
}

func criticalSpeed(obs []model.Observation, events []string) (types.CriticalSpeedView, error) {
	var (
		points []endurance.Point
		used   []string
	)
	for _, o := range obs {
		if !o.HasTime() || (len(events) > 0 && !slices.Contains(events, o.Event)) {
			continue
		}
		points = append(points, endurance.Point{Event: o.Event, DistanceMeters: o.DistanceMeters(), TimeSeconds: o.Seconds})
		used = append(used, o.Event)
	}

	res, err := endurance.CriticalSpeed(points)
	if err != nil {
		return types.CriticalSpeedView{}, err
	}
	return types.CriticalSpeedView{
		CriticalSpeedResult: res,
		Pace:                timecodec.FormatPace(res.PaceSecondsPerKm),
		Events:              used,
	}, nil
}

// Riegel fits the fatigue exponent from the best times of two events and
// extrapolates to the target event.
func (s *Service) Riegel(ctx context.Context, id string, req types.RiegelRequest) (types.RiegelView, error) {
	start := time.Now()
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return types.RiegelView{}, s.record(ctx, KindRiegel, start, err)
	}
	v, err := riegel(sess.Observations, req)
	return v, s.record(ctx, KindRiegel, start, err)
}

func riegel(obs []model.Observation, req types.RiegelRequest) (types.RiegelView, error) {
	target, ok := catalog.Distance(req.Target)
	if !ok {
		return types.RiegelView{}, fmt.Errorf("target %q: %w", req.Target, model.ErrUnknownEvent)
	}
	a, err := bestPoint(obs, req.EventA)
	if err != nil {
		return types.RiegelView{}, err
	}
	b, err := bestPoint(obs, req.EventB)
	if err != nil {
		return types.RiegelView{}, err
	}

	res, err := endurance.Riegel(a, b, target)
	if err != nil {
		return types.RiegelView{}, err
	}
	return types.RiegelView{
		RiegelResult: res,
		TargetEvent:  req.Target,
		Formatted:    timecodec.FormatEvent(res.PredictedSeconds, req.Target),
	}, nil
}

// bestPoint returns the fastest timed observation of event.
func bestPoint(obs []model.Observation, event string) (endurance.Point, error) {
	var (
		p     endurance.Point
		found bool
	)
	for _, o := range obs {
		if o.Event != event || !o.HasTime() {
			continue
		}
		if !found || o.Seconds < p.TimeSeconds {
			p = endurance.Point{Event: o.Event, DistanceMeters: o.DistanceMeters(), TimeSeconds: o.Seconds}
			found = true
		}
	}
	if !found {
		return endurance.Point{}, fmt.Errorf("%q: %w", event, ErrMissingEventTime)
	}
	return p, nil
}

// Predict averages the points of the selected events and returns the table
// time at target for that average. With no events the best scores are used.
func (s *Service) Predict(ctx context.Context, id string, events []string, target string) (scoring.Prediction, error) {
	start := time.Now()
	p, err := s.predict(ctx, id, events, target)
	return p, s.record(ctx, KindPredict, start, err)
}

func (s *Service) predict(ctx context.Context, id string, events []string, target string) (scoring.Prediction, error) {
	if !catalog.Has(target) {
		return scoring.Prediction{}, fmt.Errorf("target %q: %w", target, model.ErrUnknownEvent)
	}
	events = dedupeStrings(events)
	if len(events) > s.maxSelected {
		return scoring.Prediction{}, fmt.Errorf("%d events, max %d: %w", len(events), s.maxSelected, ErrTooManySelected)
	}

	rep, err := s.scores(ctx, id)
	if err != nil {
		return scoring.Prediction{}, err
	}
	t, err := s.scoreTable()
	if err != nil {
		return scoring.Prediction{}, err
	}
	return scoring.PredictForTarget(t, selectScored(rep.Scored, events, s.maxSelected), rep.Gender, target)
}

// selectScored picks the best OK entry per named event, or the n best OK
// entries when no event is named.
func selectScored(scored []scoring.Scored, events []string, n int) []scoring.Scored {
	ok := make([]scoring.Scored, 0, len(scored))
	for _, sc := range scored {
		if sc.OK {
			ok = append(ok, sc)
		}
	}
	slices.SortStableFunc(ok, func(a, b scoring.Scored) int {
		switch {
		case a.Points > b.Points:
			return -1
		case a.Points < b.Points:
			return 1
		default:
			return 0
		}
	})

	if len(events) == 0 {
		return ok[:min(n, len(ok))]
	}
	var out []scoring.Scored
	for _, e := range events {
		if i := slices.IndexFunc(ok, func(sc scoring.Scored) bool { return sc.Observation.Event == e }); i >= 0 {
			out = append(out, ok[i])
		}
	}
	return out
}

// Report collects everything an export document needs. Model sections that
// cannot be computed are left out; an explicit Riegel request that fails is
// an error.
func (s *Service) Report(ctx context.Context, id string, req types.ReportRequest) (types.Report, error) {
	start := time.Now()
	rep, err := s.report(ctx, id, req)
	return rep, s.record(ctx, KindReport, start, err)
}

func (s *Service) report(ctx context.Context, id string, req types.ReportRequest) (types.Report, error) {
	if req.Age < 0 {
		return types.Report{}, fmt.Errorf("age %d: %w", req.Age, ErrInvalidInput)
	}
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return types.Report{}, err
	}

	out := types.Report{
		Name:         req.Name,
		Age:          req.Age,
		Gender:       sess.Gender,
		Observations: make([]types.ObservationView, 0, len(sess.Observations)),
		Scores:       []scoring.Scored{},
	}
	for _, o := range sess.Observations {
		out.Observations = append(out.Observations, types.NewObservationView(o))
	}

	if cs, err := criticalSpeed(sess.Observations, nil); err == nil {
		out.CriticalSpeed = &cs
	} else {
		s.logger.Debug(ctx, "report without critical speed", logger.String("session", id), logger.Error(err))
	}

	if req.Riegel != nil {
		rv, err := riegel(sess.Observations, *req.Riegel)
		if err != nil {
			return types.Report{}, fmt.Errorf("report: %w", err)
		}
		out.Riegel = &rv
	}

	sc, err := s.scores(ctx, id)
	switch {
	case err == nil:
		out.Scores, out.Summary = sc.Scored, sc.Summary
	case errors.Is(err, ErrNoScoreTable):
		// scores are optional in a report
	default:
		return types.Report{}, fmt.Errorf("report: %w", err)
	}
	return out, nil
}

func dedupeStrings(in []string) []string {
	var out []string
	for _, v := range in {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
