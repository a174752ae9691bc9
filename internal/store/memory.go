package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/datallboy/fanout/internal/domain"
)

// MemoryStore keeps run history for the life of the process only.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*domain.Run)}
}

func (s *MemoryStore) CreateRun(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *run
	stored.Alive = nil
	stored.Reports = nil
	s.runs[run.ID] = &stored
	return nil
}

func (s *MemoryStore) FinishRun(_ context.Context, id string, report domain.Report, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return domain.ErrRunNotFound
	}

	run.Status = finalStatus(report)
	run.FinishedAt = &finishedAt
	run.Totals = report.Totals()
	run.Reports = report.Records()
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return copyRun(run), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out := copyRun(run)
		out.Reports = nil
		runs = append(runs, out)
	}

	slices.SortFunc(runs, func(a, b *domain.Run) int {
		return strings.Compare(b.ID, a.ID)
	})

	if n := listLimit(limit); len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyRun(run *domain.Run) *domain.Run {
	out := *run
	out.Reports = slices.Clone(run.Reports)
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}
