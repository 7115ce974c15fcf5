package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupark12/pdf-diff/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS comparison_jobs (
	session_id    TEXT        NOT NULL,
	job_id        BIGINT      NOT NULL,
	baseline      TEXT        NOT NULL DEFAULT '',
	revised       TEXT        NOT NULL DEFAULT '',
	status        TEXT        NOT NULL,
	mode          TEXT        NOT NULL DEFAULT '',
	advisory      TEXT        NOT NULL DEFAULT '',
	error_kind    TEXT        NOT NULL DEFAULT '',
	error_message TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, job_id)
)`

const upsert = `
INSERT INTO comparison_jobs
	(session_id, job_id, baseline, revised, status, mode, advisory, error_kind, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (session_id, job_id) DO UPDATE SET
	status = EXCLUDED.status,
	mode = EXCLUDED.mode,
	advisory = EXCLUDED.advisory,
	error_kind = EXCLUDED.error_kind,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at`

const selectColumns = `SELECT session_id, job_id, baseline, revised, status, mode, advisory,
	error_kind, error_message, created_at, updated_at FROM comparison_jobs`

// PostgresRecorder stores job records in the comparison_jobs table.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects to databaseURL and creates the table if it is missing.
func NewPostgresRecorder(ctx context.Context, databaseURL string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	r := &PostgresRecorder{pool: pool}
	if err := r.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// EnsureSchema creates the comparison_jobs table.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, rec models.JobRecord) error {
	_, err := r.pool.Exec(ctx, upsert,
		rec.SessionID, rec.JobID, rec.Baseline, rec.Revised, string(rec.Status), rec.Mode,
		rec.Advisory, rec.ErrorKind, rec.ErrorMessage, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", rec.Key(), err)
	}
	return nil
}

func (r *PostgresRecorder) List(ctx context.Context, sessionID string) ([]models.JobRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if sessionID == "" {
		rows, err = r.pool.Query(ctx, selectColumns+` ORDER BY session_id, job_id`)
	} else {
		rows, err = r.pool.Query(ctx, selectColumns+` WHERE session_id = $1 ORDER BY job_id`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.JobRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return recs, nil
}

// Close releases the connection pool.
func (r *PostgresRecorder) Close() {
	r.pool.Close()
}
