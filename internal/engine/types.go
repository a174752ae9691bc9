package engine

import (
	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/infra/logger"
)

// workerHandle is the supervisor's view of one running partition.
type workerHandle struct {
	id     int
	units  int
	runner *Runner
	log    *logger.Logger

	// done is closed when the worker returns, normally or by panic.
	done chan struct{}
	err  error
}

func (w *workerHandle) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// report must only be called after done is closed.
func (w *workerHandle) report() domain.WorkerReport {
	return domain.WorkerReport{
		WorkerID: w.id,
		Units:    w.units,
		Result:   w.runner.Result(),
		Err:      w.err,
	}
}
