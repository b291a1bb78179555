package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/paceline/internal/domain/dedupe"
	"github.com/okian/paceline/internal/domain/model"
	"github.com/okian/paceline/pkg/metrics"
)

type sessionEntry struct {
	session Session
	seen    dedupe.Deduper
}

// MemoryStore is an in-process Store. Sessions live as long as the process.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionEntry
	limit      int
	maxObs     int
	dedupeSize int
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:   make(map[string]*sessionEntry),
		dedupeSize: 0,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session for gender.
func (s *MemoryStore) Create(_ context.Context, gender model.Gender) (Session, error) {
	if !gender.Valid() {
		return Session{}, fmt.Errorf("gender %q: %w", gender, ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.sessions) >= s.limit {
		return Session{}, fmt.Errorf("%d open: %w", len(s.sessions), ErrLimit)
	}

	now := s.now()
	e := &sessionEntry{
		session: Session{
			ID:        uuid.NewString(),
			Gender:    gender,
			CreatedAt: now,
			UpdatedAt: now,
		},
		seen: s.newDeduper(),
	}
	s.sessions[e.session.ID] = e
	metrics.UpdateSessions(len(s.sessions))
	return cloneSession(e.session), nil
}

// Get returns a copy of the session.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return cloneSession(e.session), nil
}

// Append stores observations under the session gender. When the observation
// cap is hit, the ones that fit are kept and ErrTooMany is returned.
func (s *MemoryStore) Append(ctx context.Context, id string, obs ...model.Observation) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return AppendResult{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	var res AppendResult
	for _, o := range obs {
		o.Gender = e.session.Gender
		key := dedupe.Key(o)
		if e.seen.SeenAndRecord(ctx, key) {
			res.Duplicates++
			continue
		}
		if s.maxObs > 0 && len(e.session.Observations) >= s.maxObs {
			e.seen.Unrecord(ctx, key)
			e.touch(s.now())
			return res, fmt.Errorf("session %s holds %d: %w", id, s.maxObs, ErrTooMany)
		}
		e.session.Observations = append(e.session.Observations, o)
		res.Added++
	}
	e.touch(s.now())
	return res, nil
}

// SetGender switches the session gender and re-keys its observations.
func (s *MemoryStore) SetGender(ctx context.Context, id string, gender model.Gender) (Session, error) {
	if !gender.Valid() {
		return Session{}, fmt.Errorf("gender %q: %w", gender, ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if e.session.Gender == gender {
		return cloneSession(e.session), nil
	}

	e.session.Gender = gender
	e.seen = s.newDeduper()
	kept := e.session.Observations[:0]
	for _, o := range e.session.Observations {
		o.Gender = gender
		if !e.seen.SeenAndRecord(ctx, dedupe.Key(o)) {
			kept = append(kept, o)
		}
	}
	e.session.Observations = kept
	e.touch(s.now())
	return cloneSession(e.session), nil
}

// Delete drops a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	metrics.UpdateSessions(len(s.sessions))
	return nil
}

// Count returns the number of open sessions.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) newDeduper() dedupe.Deduper {
	// The filter must remember every stored observation, so it is never
	// smaller than the session cap and unbounded when the session is.
	size := s.dedupeSize
	switch {
	case s.maxObs <= 0:
		size = 0
	case size > 0 && size < s.maxObs:
		size = s.maxObs
	}
	return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))
}

func (e *sessionEntry) touch(now time.Time) {
	e.session.UpdatedAt = now
}

func cloneSession(s Session) Session {
	s.Observations = slices.Clone(s.Observations)
	return s
}
