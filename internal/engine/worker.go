package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/infra/metrics"
	"github.com/datallboy/fanout/internal/transfer"
)

// Runner processes one partition sequentially. A failed item never stops the
// ones after it.
type Runner struct {
	id         int
	downloader app.Downloader
	overwrite  bool
	log        *logger.Logger
	metrics    *metrics.Metrics

	// result is only touched by the goroutine running Run. The supervisor
	// reads it after the worker's done channel closes.
	result domain.RunResult
}

func NewRunner(id int, d app.Downloader, overwrite bool, log *logger.Logger, m *metrics.Metrics) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		id:         id,
		downloader: d,
		overwrite:  overwrite,
		log:        log,
		metrics:    m,
	}
}

// Run attempts every unit in order and returns the tallies.
func (r *Runner) Run(units []domain.TransferUnit) domain.RunResult {
	r.log.Info("starting download list with %d items", len(units))

	for _, unit := range units {
		r.process(unit)
	}

	r.log.Info("Download list done OK %d SKIPPED %d FAILED %d",
		r.result.OK, r.result.Skipped, r.result.Failed)

	return r.result
}

// Result returns the tallies accumulated so far.
func (r *Runner) Result() domain.RunResult {
	return r.result
}

func (r *Runner) process(unit domain.TransferUnit) {
	start := time.Now()
	res, err := r.attempt(unit)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
	}

	switch res.Outcome {
	case domain.OutcomeOK:
		r.log.Debug("Done downloading %s. %s ===> %s",
			humanize.Bytes(uint64(res.Bytes)), unit.Source, unit.Destination)
	case domain.OutcomeSkipped:
		r.log.Debug("file %s exists. skipping", unit.Destination)
	default:
		// anything not ok or skipped counts against the partition
		res.Outcome = domain.OutcomeFailed
		r.log.Debug("error downloading %s ===> %s: %v", unit.Source, unit.Destination, err)
	}

	r.result.Add(res.Outcome)
	r.metrics.RecordTransfer(res.Outcome, res.Bytes, time.Since(start))
}

// attempt turns a panic in the downloader into an error for that unit alone.
func (r *Runner) attempt(unit domain.TransferUnit) (res transfer.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = transfer.Result{Outcome: domain.OutcomeFailed}
			err = &domain.TransferError{Op: "attempt", Unit: unit, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	return r.downloader.Attempt(context.Background(), unit, r.overwrite)
}
