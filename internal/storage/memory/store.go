// Package memory is an in-memory run store used in tests and when
// persistence is disabled.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/relgate/relgate/internal/pipeline"
	"github.com/relgate/relgate/internal/storage"
)

// Store keeps runs in a map guarded by a mutex.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*pipeline.Run
}

var _ storage.RunStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]*pipeline.Run)}
}

func (s *Store) SaveRun(_ context.Context, run *pipeline.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*pipeline.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return run, nil
}

func (s *Store) ListRuns(_ context.Context, limit int) ([]*pipeline.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*pipeline.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Store) Close() error {
	return nil
}
