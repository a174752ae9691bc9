package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datallboy/fanout/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    units       INTEGER NOT NULL,
    workers     INTEGER NOT NULL,
    overwrite   BOOLEAN NOT NULL DEFAULT FALSE,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    ok          INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_workers (
    run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    worker_id INTEGER NOT NULL,
    units     INTEGER NOT NULL,
    ok        INTEGER NOT NULL DEFAULT 0,
    skipped   INTEGER NOT NULL DEFAULT 0,
    failed    INTEGER NOT NULL DEFAULT 0,
    error     TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, worker_id)
);`

// PostgresStore keeps run history in a shared Postgres database, for
// servers that run on more than one host.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, status, units, workers, overwrite, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Status), run.Units, run.Workers, run.Overwrite, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, id string, report domain.Report, finishedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	totals := report.Totals()
	tag, err := tx.Exec(ctx, `
		UPDATE runs SET status = $1, finished_at = $2, ok = $3, skipped = $4, failed = $5
		WHERE id = $6`,
		string(finalStatus(report)), finishedAt, totals.OK, totals.Skipped, totals.Failed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}

	batch := &pgx.Batch{}
	for _, w := range report.Records() {
		batch.Queue(`
			INSERT INTO run_workers (run_id, worker_id, units, ok, skipped, failed, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id, worker_id) DO UPDATE
			SET units = EXCLUDED.units, ok = EXCLUDED.ok, skipped = EXCLUDED.skipped,
			    failed = EXCLUDED.failed, error = EXCLUDED.error`,
			id, w.WorkerID, w.Units, w.Result.OK, w.Result.Skipped, w.Result.Failed, w.Error,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to record workers of run %s: %w", id, err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)

	run, err := scanPostgresRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to fetch run: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, worker_id, units, ok, skipped, failed, error
		FROM run_workers WHERE run_id = $1 ORDER BY worker_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workers of run %s: %w", id, err)
	}

	workers, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (workerDBO, error) {
		var w workerDBO
		err := r.Scan(&w.RunID, &w.WorkerID, &w.Units, &w.OK, &w.Skipped, &w.Failed, &w.Error)
		return w, err
	})
	if err != nil {
		return nil, err
	}

	for _, w := range workers {
		run.Reports = append(run.Reports, w.ToDomain())
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (*domain.Run, error) {
		return scanPostgresRun(r)
	})
}

func scanPostgresRun(row pgx.Row) (*domain.Run, error) {
	var (
		run    domain.Run
		status string
	)
	err := row.Scan(&run.ID, &status, &run.Units, &run.Workers, &run.Overwrite,
		&run.StartedAt, &run.FinishedAt, &run.Totals.OK, &run.Totals.Skipped, &run.Totals.Failed)
	if err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = run.StartedAt.UTC()
	if run.FinishedAt != nil {
		t := run.FinishedAt.UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}
