// Package storage defines the run-history store contract.
package storage

import (
	"context"
	"errors"

	"github.com/relgate/relgate/internal/pipeline"
)

// ErrNotFound is returned when no run exists for the requested ID.
var ErrNotFound = errors.New("run not found")

// RunStore persists completed pipeline runs, including every stage's
// outcome and raw collaborator diagnostics.
type RunStore interface {
	SaveRun(ctx context.Context, run *pipeline.Run) error
	GetRun(ctx context.Context, id string) (*pipeline.Run, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*pipeline.Run, error)
	Close() error
}
