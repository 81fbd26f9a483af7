package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

// RunRepository is the ingestion run ledger.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	documents_loaded INTEGER NOT NULL DEFAULT 0,
	chunks_indexed INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_created_at ON ingest_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.IngestRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingest_runs (id, status, documents_loaded, chunks_indexed, files_skipped, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, run.ID, string(run.Status), run.DocumentsLoaded, run.ChunksIndexed, run.FilesSkipped, nullIfEmpty(run.Error), run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create ingest run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.IngestRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, documents_loaded, chunks_indexed, files_skipped, error_message, created_at, updated_at
FROM ingest_runs
WHERE id = $1
`, id)

	var run domain.IngestRun
	var status string
	var errMessage sql.NullString
	err := row.Scan(
		&run.ID,
		&status,
		&run.DocumentsLoaded,
		&run.ChunksIndexed,
		&run.FilesSkipped,
		&errMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get ingest run", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get ingest run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.Error = errMessage.String
	return &run, nil
}

func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE ingest_runs
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(domain.RunRunning), now)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return requireRowAffected(result, id)
}

func (r *RunRepository) MarkFinished(ctx context.Context, id string, status domain.RunStatus, counts domain.RunCounts, errMessage string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE ingest_runs
SET status = $2, documents_loaded = $3, chunks_indexed = $4, files_skipped = $5, error_message = $6, updated_at = $7
WHERE id = $1
`, id, string(status), counts.DocumentsLoaded, counts.ChunksIndexed, counts.FilesSkipped, nullIfEmpty(errMessage), now)
	if err != nil {
		return fmt.Errorf("mark run finished: %w", err)
	}
	return requireRowAffected(result, id)
}

func requireRowAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "update ingest run", fmt.Errorf("id=%s", id))
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
