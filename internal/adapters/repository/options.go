package repository

import "time"

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithSessionLimit caps the number of open sessions. Zero disables the cap.
func WithSessionLimit(n int) Option {
	return func(s *MemoryStore) {
		if n >= 0 {
			s.limit = n
		}
	}
}

// WithMaxObservations caps observations per session. Zero disables the cap.
func WithMaxObservations(n int) Option {
	return func(s *MemoryStore) {
		if n >= 0 {
			s.maxObs = n
		}
	}
}

// WithDedupeSize bounds the per-session duplicate filter. The bound is raised
// to the observation cap, and ignored when observations are unlimited.
func WithDedupeSize(n int) Option {
	return func(s *MemoryStore) {
		s.dedupeSize = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
