// Package store persists evaluations. Two backends implement the same
// interface: SQLite for single-node use and Postgres for shared
// deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sitescout/sitescout/internal/model"
)

// ErrNotFound is returned when a requested evaluation does not exist.
var ErrNotFound = eris.New("evaluation not found")

// ListFilter specifies criteria for listing evaluations.
type ListFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for evaluations.
type Store interface {
	CreateEvaluation(ctx context.Context, eval *model.Evaluation) error
	GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error)
	ListEvaluations(ctx context.Context, filter ListFilter) ([]model.Evaluation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
