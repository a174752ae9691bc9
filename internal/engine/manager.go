package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/infra/metrics"
)

const defaultWorkers = 16

// RunManager launches pools, tracks the ones still in flight and records
// every run in the store.
type RunManager struct {
	mu         sync.RWMutex
	downloader app.Downloader
	store      app.Store
	logs       app.LogFactory
	metrics    *metrics.Metrics
	log        *logger.Logger
	workers    int

	active map[string]*activeRun
}

type activeRun struct {
	run  *domain.Run
	pool *Pool
	done chan struct{}
}

func NewRunManager(appCtx *app.Context) *RunManager {
	workers := defaultWorkers
	if appCtx.Config != nil && appCtx.Config.Workers > 0 {
		workers = appCtx.Config.Workers
	}

	logs := appCtx.Logs
	if logs == nil {
		logs = func(string) (*logger.Set, error) { return logger.NewDiscardSet(), nil }
	}

	log := appCtx.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &RunManager{
		downloader: appCtx.Downloader,
		store:      appCtx.Store,
		logs:       logs,
		metrics:    appCtx.Metrics,
		log:        log,
		workers:    workers,
		active:     make(map[string]*activeRun),
	}
}

// Start launches a pool for units without waiting for it. workers below 1
// falls back to the configured count.
func (m *RunManager) Start(ctx context.Context, units []domain.TransferUnit, workers int, overwrite bool) (*domain.Run, error) {
	if workers < 1 {
		workers = m.workers
	}

	id := ksuid.New().String()
	set, err := m.logs(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open logs for run %s: %w", id, err)
	}

	pool, err := Launch(m.downloader, units, workers, false, Options{
		Overwrite: overwrite,
		Logs:      set,
		Metrics:   m.metrics,
	})
	if err != nil {
		_ = set.Close()
		return nil, err
	}

	run := &domain.Run{
		ID:        id,
		Status:    domain.StatusRunning,
		Units:     len(units),
		Workers:   pool.Size(),
		Overwrite: overwrite,
		StartedAt: time.Now().UTC(),
	}

	// The pool is already running, so a failed insert only costs history.
	if err := m.store.CreateRun(ctx, run); err != nil {
		m.log.Error("failed to save run %s: %v", id, err)
	}

	entry := &activeRun{run: run, pool: pool, done: make(chan struct{})}

	m.mu.Lock()
	m.active[id] = entry
	m.mu.Unlock()

	m.log.Info("run %s started: %d items across %d workers", id, run.Units, run.Workers)

	// await mutates run once the pool drains
	started := snapshot(run, pool.Alive())
	go m.await(id, entry, set)

	return started, nil
}

func (m *RunManager) await(id string, entry *activeRun, set *logger.Set) {
	report := entry.pool.Wait()
	finished := time.Now().UTC()

	m.mu.Lock()
	entry.run.FinishedAt = &finished
	entry.run.Totals = report.Totals()
	entry.run.Reports = report.Records()
	if report.Complete() {
		entry.run.Status = domain.StatusCompleted
	} else {
		entry.run.Status = domain.StatusIncomplete
	}
	m.mu.Unlock()

	persisted := true
	if err := m.store.FinishRun(context.Background(), id, report, finished); err != nil {
		m.log.Error("failed to record result of run %s: %v", id, err)
		persisted = false
	}

	if err := set.Close(); err != nil {
		m.log.Warn("failed to close logs for run %s: %v", id, err)
	}

	m.log.Info("run %s %s", id, entry.run.Status)

	// Runs the store could not take stay answerable from memory.
	if persisted {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}

	close(entry.done)
}

// Get returns the current view of a run. Runs in flight carry a per-worker
// alive flag.
func (m *RunManager) Get(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	entry, ok := m.active[id]
	if ok {
		var alive []bool
		if entry.run.Status == domain.StatusRunning {
			alive = entry.pool.Alive()
		}
		run := snapshot(entry.run, alive)
		m.mu.RUnlock()
		return run, nil
	}
	m.mu.RUnlock()

	return m.store.GetRun(ctx, id)
}

// Wait blocks until the run finishes or ctx is done, then returns its
// final state.
func (m *RunManager) Wait(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	entry, ok := m.active[id]
	m.mu.RUnlock()

	if !ok {
		run, err := m.store.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run.Status == domain.StatusRunning {
			// started by another process; nothing here can wait on it
			return nil, errors.New("run is not managed by this process")
		}
		return run, nil
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(entry.run, nil), nil
}

// List returns recorded runs, newest first.
func (m *RunManager) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	return m.store.ListRuns(ctx, limit)
}

// Active returns how many runs are still in flight.
func (m *RunManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, entry := range m.active {
		if entry.run.Status == domain.StatusRunning {
			n++
		}
	}
	return n
}

// snapshot copies run so callers never share slices with the manager.
func snapshot(run *domain.Run, alive []bool) *domain.Run {
	out := *run
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	out.Reports = append([]domain.WorkerRecord(nil), run.Reports...)
	out.Alive = alive
	return &out
}
