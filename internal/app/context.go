package app

import (
	"context"
	"time"

	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/infra/config"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/infra/metrics"
	"github.com/datallboy/fanout/internal/transfer"
)

// Downloader performs a single transfer. The engine depends on this rather
// than on the transfer package's concrete type so tests can swap it out.
type Downloader interface {
	Attempt(ctx context.Context, unit domain.TransferUnit, overwrite bool) (transfer.Result, error)
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, id string, report domain.Report, finishedAt time.Time) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
	Close() error
}

// LogFactory builds the logger set for a run.
type LogFactory func(runID string) (*logger.Set, error)

// Context holds the shared resources every command wires together.
type Context struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	Downloader Downloader
	Store      Store
	Logs       LogFactory
}

// NewContext initializes the base environment. Callers fill in the services
// they need.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Discard()
	}
	return &Context{
		Config: cfg,
		Logger: log,
		Logs: func(string) (*logger.Set, error) {
			return logger.NewDiscardSet(), nil
		},
	}
}
