// Package service provides the analysis service behind the HTTP API and the
// command line tool.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/paceline/internal/adapters/profile"
	"github.com/okian/paceline/internal/adapters/repository"
	"github.com/okian/paceline/internal/domain/catalog"
	"github.com/okian/paceline/internal/domain/endurance"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/internal/domain/types"
	"github.com/okian/paceline/pkg/logger"
	"github.com/okian/paceline/pkg/metrics"
)

// Rejection reasons reported back to callers.
const (
	ReasonUnknownEvent = "unknown_event"
	ReasonSessionFull  = "session_full"
)

const defaultMaxSelected = 3

// ProfileFetcher downloads personal bests from an athlete profile page.
type ProfileFetcher interface {
	Fetch(ctx context.Context, url string) ([]profile.PB, error)
}

// Service owns the sessions and runs the analyses over them.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	table    *scoring.Table
	profiles ProfileFetcher

	// Configuration
	maxSelected     int
	sessionLimit    int
	maxObservations int
	dedupeSize      int

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxSelected: defaultMaxSelected,
		dedupeSize:  1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the session store unless one was supplied.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(
			repository.WithSessionLimit(s.sessionLimit),
			repository.WithMaxObservations(s.maxObservations),
			repository.WithDedupeSize(s.dedupeSize),
		)
	}

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("scoreRows", s.table.Len()),
		logger.Int("maxSelected", s.maxSelected),
		logger.Int("sessionLimit", s.sessionLimit),
		logger.Bool("profileImport", s.profiles != nil),
	)
	return nil
}

// Stop marks the service stopped. Sessions are kept in the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// SetScoreTable swaps the reference table used for scoring.
func (s *Service) SetScoreTable(t *scoring.Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}

// HasScoreTable reports whether scoring is available.
func (s *Service) HasScoreTable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len() > 0
}

// MaxSelected returns the prediction selection cap.
func (s *Service) MaxSelected() int { return s.maxSelected }

// Events lists the catalog.
func (s *Service) Events() []types.EventInfo {
	all := catalog.All()
	out := make([]types.EventInfo, 0, len(all))
	for _, e := range all {
		out = append(out, types.EventInfo{Name: e.Name, DistanceMeters: e.DistanceMeters, Format: e.Format.String()})
	}
	return out
}

// Stats reports session and reference data counts.
func (s *Service) Stats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := types.Stats{
		ScoreTableRows: s.table.Len(),
		Violations:     len(s.table.Violations()),
		ProfileImport:  s.profiles != nil,
		MaxSelected:    s.maxSelected,
	}
	if s.store != nil {
		st.Sessions = s.store.Count(ctx)
	}
	return st
}

// CreateSession opens a session for gender.
func (s *Service) CreateSession(ctx context.Context, gender model.Gender) (repository.Session, error) {
	st, err := s.components()
	if err != nil {
		return repository.Session{}, err
	}
	sess, err := st.Create(ctx, gender)
	if err != nil {
		return repository.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug(ctx, "session created", logger.String("session", sess.ID), logger.String("gender", string(gender)))
	return sess, nil
}

// GetSession returns a copy of the session.
func (s *Service) GetSession(ctx context.Context, id string) (repository.Session, error) {
	st, err := s.components()
	if err != nil {
		return repository.Session{}, err
	}
	return st.Get(ctx, id)
}

// SetGender switches the gender a session is scored under.
func (s *Service) SetGender(ctx context.Context, id string, gender model.Gender) (repository.Session, error) {
	st, err := s.components()
	if err != nil {
		return repository.Session{}, err
	}
	return st.SetGender(ctx, id, gender)
}

// DeleteSession drops a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	st, err := s.components()
	if err != nil {
		return err
	}
	return st.Delete(ctx, id)
}

// AddObservations stores manually entered performances. Events outside the
// catalog are rejected. Text that is not a time is kept and shows up as
// unscorable later.
func (s *Service) AddObservations(ctx context.Context, id string, in []types.ObservationInput) (types.AddResult, error) {
	obs := make([]model.Observation, 0, len(in))
	var rejected []types.Rejection
	for _, i := range in {
		o, err := model.NewObservation(i.Event, i.Time, "", model.SourceManual)
		if err != nil {
			rejected = append(rejected, types.Rejection{Event: i.Event, Time: i.Time, Reason: ReasonUnknownEvent})
			metrics.RecordObservationRejected(ReasonUnknownEvent)
			continue
		}
		o.Date, o.Score = i.Date, i.Score
		obs = append(obs, o)
	}
	return s.append(ctx, id, obs, rejected)
}

// ImportProfile fetches the personal bests on a profile page and stores the
// ones for catalog events.
func (s *Service) ImportProfile(ctx context.Context, id, url string) (types.AddResult, error) {
	s.mu.RLock()
	fetcher := s.profiles
	s.mu.RUnlock()
	if fetcher == nil {
		return types.AddResult{}, ErrNoProfileClient
	}
	if _, err := s.GetSession(ctx, id); err != nil {
		return types.AddResult{}, err
	}

	start := time.Now()
	pbs, err := fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.RecordProfileImport(metrics.OutcomeError, msSince(start))
		metrics.RecordErrorByComponent("profile", errorType(err))
		s.logger.Warn(ctx, "profile fetch failed", logger.String("url", url), logger.Error(err))
		return types.AddResult{}, fmt.Errorf("import profile: %w", err)
	}

	obs := make([]model.Observation, 0, len(pbs))
	var rejected []types.Rejection
	for _, pb := range pbs {
		o, err := model.NewObservation(pb.Discipline, pb.Performance, "", model.SourceWorldAthletics)
		if err != nil {
			rejected = append(rejected, types.Rejection{Event: pb.Discipline, Time: pb.Performance, Reason: ReasonUnknownEvent})
			continue
		}
		o.Date, o.Score = pb.Date, pb.Score
		obs = append(obs, o)
	}

	res, err := s.append(ctx, id, obs, rejected)
	result := metrics.OutcomeOK
	if err != nil {
		result = metrics.OutcomeError
	}
	metrics.RecordProfileImport(result, msSince(start))
	s.logger.Info(ctx, "profile imported",
		logger.String("session", id),
		logger.Int("found", len(pbs)),
		logger.Int("added", res.Added),
		logger.Int("rejected", len(res.Rejected)),
	)
	return res, err
}

func (s *Service) append(ctx context.Context, id string, obs []model.Observation, rejected []types.Rejection) (types.AddResult, error) {
	st, err := s.components()
	if err != nil {
		return types.AddResult{}, err
	}

	res, err := st.Append(ctx, id, obs...)
	out := types.AddResult{Added: res.Added, Duplicates: res.Duplicates, Rejected: rejected}
	for _, o := range obs[:min(len(obs), res.Added+res.Duplicates)] {
		if !o.HasTime() {
			metrics.RecordParseFailure()
		}
	}
	for range res.Duplicates {
		metrics.RecordObservationDuplicate()
	}
	for i := range res.Added {
		metrics.RecordObservationAdded(string(obs[i].Source))
	}

	if err != nil {
		if !errors.Is(err, repository.ErrTooMany) {
			return types.AddResult{}, fmt.Errorf("append: %w", err)
		}
		for _, o := range obs[res.Added+res.Duplicates:] {
			out.Rejected = append(out.Rejected, types.Rejection{Event: o.Event, Time: o.TimeText, Reason: ReasonSessionFull})
			metrics.RecordObservationRejected(ReasonSessionFull)
		}
		s.logger.Warn(ctx, "session full", logger.String("session", id), logger.Error(err))
		return out, fmt.Errorf("append: %w", err)
	}

	s.logger.Debug(ctx, "observations stored",
		logger.String("session", id),
		logger.Int("added", out.Added),
		logger.Int("duplicates", out.Duplicates),
		logger.Int("rejected", len(out.Rejected)),
	)
	return out, nil
}

func (s *Service) components() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) scoreTable() (*scoring.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoScoreTable, scoring.ErrNotFound)
	}
	return s.table, nil
}

// record reports an analysis to metrics and returns err unchanged.
func (s *Service) record(ctx context.Context, kind string, start time.Time, err error) error {
	metrics.RecordAnalysis(kind, outcome(err), msSince(start))
	if err != nil {
		s.logger.Debug(ctx, "analysis not computed", logger.String("kind", kind), logger.Error(err))
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, endurance.ErrUndetermined), errors.Is(err, ErrMissingEventTime):
		return metrics.OutcomeInsufficient
	case errors.Is(err, scoring.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, scoring.ErrNoData):
		return metrics.OutcomeNoData
	default:
		return metrics.OutcomeError
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, profile.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, profile.ErrStatus):
		return "status"
	case errors.Is(err, profile.ErrParse):
		return "parse"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
