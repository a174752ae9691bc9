package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/datallboy/fanout/internal/domain"
)

const runColumns = `id, status, units, workers, overwrite, started_at, finished_at, ok, skipped, failed`

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	query := `INSERT INTO runs (id, status, units, workers, overwrite, started_at)
              VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		run.Units,
		run.Workers,
		run.Overwrite,
		run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, report domain.Report, finishedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	totals := report.Totals()
	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, ok = ?, skipped = ?, failed = ?
		WHERE id = ?`,
		finalStatus(report), finishedAt.UnixMilli(), totals.OK, totals.Skipped, totals.Failed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRunNotFound
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO run_workers (run_id, worker_id, units, ok, skipped, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range report.Records() {
		_, err := stmt.ExecContext(ctx, id, w.WorkerID, w.Units, w.Result.OK, w.Result.Skipped, w.Result.Failed, w.Error)
		if err != nil {
			return fmt.Errorf("failed to record worker %d of run %s: %w", w.WorkerID, id, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? LIMIT 1`, id)

	var dbo runDBO
	err := row.Scan(&dbo.ID, &dbo.Status, &dbo.Units, &dbo.Workers, &dbo.Overwrite,
		&dbo.StartedAt, &dbo.FinishedAt, &dbo.OK, &dbo.Skipped, &dbo.Failed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	run := dbo.ToDomain()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, worker_id, units, ok, skipped, failed, error
		FROM run_workers WHERE run_id = ? ORDER BY worker_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var w workerDBO
		if err := rows.Scan(&w.RunID, &w.WorkerID, &w.Units, &w.OK, &w.Skipped, &w.Failed, &w.Error); err != nil {
			return nil, err
		}
		run.Reports = append(run.Reports, w.ToDomain())
	}

	return run, rows.Err()
}

// ListRuns returns the newest runs first. KSUIDs sort chronologically.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		var dbo runDBO
		err := rows.Scan(&dbo.ID, &dbo.Status, &dbo.Units, &dbo.Workers, &dbo.Overwrite,
			&dbo.StartedAt, &dbo.FinishedAt, &dbo.OK, &dbo.Skipped, &dbo.Failed)
		if err != nil {
			return nil, err
		}
		runs = append(runs, dbo.ToDomain())
	}

	return runs, rows.Err()
}
