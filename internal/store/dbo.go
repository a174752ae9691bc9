package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/fanout/internal/domain"
)

// runDBO maps to the runs table
type runDBO struct {
	ID         string        `db:"id"`
	Status     string        `db:"status"`
	Units      int           `db:"units"`
	Workers    int           `db:"workers"`
	Overwrite  bool          `db:"overwrite"`
	StartedAt  int64         `db:"started_at"`
	FinishedAt sql.NullInt64 `db:"finished_at"`
	OK         int           `db:"ok"`
	Skipped    int           `db:"skipped"`
	Failed     int           `db:"failed"`
}

func (r runDBO) ToDomain() *domain.Run {
	run := &domain.Run{
		ID:        r.ID,
		Status:    domain.RunStatus(r.Status),
		Units:     r.Units,
		Workers:   r.Workers,
		Overwrite: r.Overwrite,
		StartedAt: time.UnixMilli(r.StartedAt).UTC(),
		Totals: domain.RunResult{
			OK:      r.OK,
			Skipped: r.Skipped,
			Failed:  r.Failed,
		},
	}
	if r.FinishedAt.Valid {
		t := time.UnixMilli(r.FinishedAt.Int64).UTC()
		run.FinishedAt = &t
	}
	return run
}

// workerDBO maps to the run_workers table
type workerDBO struct {
	RunID    string `db:"run_id"`
	WorkerID int    `db:"worker_id"`
	Units    int    `db:"units"`
	OK       int    `db:"ok"`
	Skipped  int    `db:"skipped"`
	Failed   int    `db:"failed"`
	Error    string `db:"error"`
}

func (w workerDBO) ToDomain() domain.WorkerRecord {
	return domain.WorkerRecord{
		WorkerID: w.WorkerID,
		Units:    w.Units,
		Result: domain.RunResult{
			OK:      w.OK,
			Skipped: w.Skipped,
			Failed:  w.Failed,
		},
		Error: w.Error,
	}
}

// finalStatus is the status a finished report is recorded with.
func finalStatus(report domain.Report) domain.RunStatus {
	if report.Complete() {
		return domain.StatusCompleted
	}
	return domain.StatusIncomplete
}
