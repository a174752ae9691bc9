package engine

import (
	"fmt"
	"sync"

	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/infra/metrics"
)

// LogSource hands out the per-worker streams of a run.
type LogSource interface {
	Main() *logger.Logger
	Worker(id int) (*logger.Logger, error)
}

type Options struct {
	Overwrite bool
	Logs      LogSource
	Metrics   *metrics.Metrics
}

// Pool supervises the workers of one launch.
type Pool struct {
	workers []*workerHandle
	log     *logger.Logger

	summaryOnce sync.Once
	report      domain.Report
}

// Launch splits units across at most numWorkers workers and starts one
// goroutine per partition. When wait is set it blocks until every worker
// has finished; otherwise it returns immediately and the caller polls Alive
// or calls Wait. Worker log streams are opened before anything starts, so a
// failure there launches nothing.
func Launch(d app.Downloader, units []domain.TransferUnit, numWorkers int, wait bool, opts Options) (*Pool, error) {
	logs := opts.Logs
	if logs == nil {
		logs = logger.NewDiscardSet()
	}

	p := &Pool{log: logs.Main()}
	partitions := Split(units, numWorkers)

	for _, part := range partitions {
		wlog, err := logs.Worker(part.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("failed to start worker %d: %w", part.WorkerID, err)
		}
		p.workers = append(p.workers, &workerHandle{
			id:     part.WorkerID,
			units:  len(part.Units),
			runner: NewRunner(part.WorkerID, d, opts.Overwrite, wlog, opts.Metrics),
			log:    wlog,
			done:   make(chan struct{}),
		})
	}

	p.log.Info("launching %d workers for %d items", len(partitions), len(units))

	for i, w := range p.workers {
		go p.runWorker(w, partitions[i].Units, opts.Metrics)
	}

	if wait {
		p.Wait()
	}

	return p, nil
}

func (p *Pool) runWorker(w *workerHandle, units []domain.TransferUnit, m *metrics.Metrics) {
	// close last so the report sees err and the final tallies
	defer close(w.done)
	defer func() {
		if rec := recover(); rec != nil {
			w.err = fmt.Errorf("worker %d crashed: %v", w.id, rec)
			w.log.Error("%v", w.err)
		}
	}()

	m.WorkerStarted()
	defer m.WorkerDone()

	w.runner.Run(units)
}

// Size returns the number of workers launched.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Alive reports, per worker, whether it is still running. It never blocks.
func (p *Pool) Alive() []bool {
	alive := make([]bool, len(p.workers))
	for i, w := range p.workers {
		alive[i] = w.alive()
	}
	return alive
}

// Running returns how many workers have not finished yet.
func (p *Pool) Running() int {
	n := 0
	for _, w := range p.workers {
		if w.alive() {
			n++
		}
	}
	return n
}

// Wait blocks until every worker has returned and then reports on them.
// It may be called any number of times.
func (p *Pool) Wait() domain.Report {
	for _, w := range p.workers {
		<-w.done
	}

	p.summaryOnce.Do(func() {
		reports := make([]domain.WorkerReport, 0, len(p.workers))
		for _, w := range p.workers {
			reports = append(reports, w.report())
		}
		p.report = domain.Report{Workers: reports}

		totals := p.report.Totals()
		p.log.Info("all %d workers done OK %d SKIPPED %d FAILED %d",
			len(p.workers), totals.OK, totals.Skipped, totals.Failed)
		if !p.report.Complete() {
			p.log.Error("one or more workers crashed before finishing their list")
		}
	})

	return p.report
}
