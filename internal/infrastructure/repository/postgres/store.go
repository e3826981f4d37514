// Package postgres persists submissions, documents and scores. Natural
// keys from the document source get unique indexes so re-runs of the
// same batch cannot duplicate rows.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
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

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS submissions (
	id BIGSERIAL PRIMARY KEY,
	applicant_name TEXT NOT NULL,
	applicant_email TEXT NOT NULL DEFAULT '',
	submission_folder_id TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_folder_id ON submissions(submission_folder_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);

CREATE TABLE IF NOT EXISTS documents (
	id BIGSERIAL PRIMARY KEY,
	submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	source_item_id TEXT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	file_size BIGINT NOT NULL DEFAULT 0,
	processed BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_source_item_id ON documents(source_item_id);
CREATE INDEX IF NOT EXISTS idx_documents_submission_id ON documents(submission_id);

CREATE TABLE IF NOT EXISTS scores (
	id BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
	category TEXT NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	max_score DOUBLE PRECISION NOT NULL,
	criteria_scores JSONB NOT NULL DEFAULT '{}'::jsonb,
	feedback TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_document_id ON scores(document_id);
CREATE INDEX IF NOT EXISTS idx_scores_submission_id ON scores(submission_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
