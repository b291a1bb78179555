package service

import (
	"github.com/okian/paceline/internal/adapters/repository"
	"github.com/okian/paceline/internal/domain/scoring"
	"github.com/okian/paceline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScoreTable enables WA scoring against t.
func WithScoreTable(t *scoring.Table) Option {
	return func(s *Service) {
		s.table = t
	}
}

// WithMaxSelected caps how many scored events feed a prediction.
func WithMaxSelected(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSelected = n
		}
	}
}

// WithSessionLimit caps open sessions; 0 means unlimited.
func WithSessionLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.sessionLimit = n
		}
	}
}

// WithMaxObservations caps observations per session; 0 means unlimited.
func WithMaxObservations(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxObservations = n
		}
	}
}

// WithDedupeSize bounds the per-session duplicate filter.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		s.dedupeSize = n
	}
}

// WithProfileClient enables profile imports.
func WithProfileClient(f ProfileFetcher) Option {
	return func(s *Service) {
		s.profiles = f
	}
}

// WithStore replaces the session store built by Start.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}
