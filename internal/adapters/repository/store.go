// Package repository holds session state and loads reference data.
package repository

import (
	"context"
	"time"

	"github.com/okian/paceline/internal/domain/model"
)

// Session is one runner's working set of observations.
type Session struct {
	ID           string              `json:"id"`
	Gender       model.Gender        `json:"gender"`
	Observations []model.Observation `json:"observations"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// AppendResult reports how many observations were stored.
type AppendResult struct {
	Added      int
	Duplicates int
}

// Store provides access to sessions. Implementations return copies, so a
// returned Session can be read without holding any lock.
type Store interface {
	Create(ctx context.Context, gender model.Gender) (Session, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Session, error)
	// Append adds observations, skipping ones already in the session.
	Append(ctx context.Context, id string, obs ...model.Observation) (AppendResult, error)
	SetGender(ctx context.Context, id string, gender model.Gender) (Session, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) int
}
