package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

const schemaLockID int64 = 2026101501

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the rescue, import log and reference tables. The
// reference tables are owned by the registry team; they are only created
// here so a fresh database can boot.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS species (
	id TEXT PRIMARY KEY,
	popular_name TEXT NOT NULL,
	scientific_name TEXT
);

CREATE TABLE IF NOT EXISTS destinations (id TEXT PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS origins (id TEXT PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS health_states (id TEXT PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS life_stages (id TEXT PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS outcomes (id TEXT PRIMARY KEY, name TEXT NOT NULL);

CREATE TABLE IF NOT EXISTS rescue_records (
	id TEXT PRIMARY KEY,
	source_file_id TEXT NOT NULL,
	report_number TEXT,
	report_type TEXT NOT NULL,
	occurrence_date DATE NOT NULL,
	call_time TEXT,
	arrival_time TEXT,
	end_time TEXT,
	custody_time TEXT,
	origin_latitude DOUBLE PRECISION,
	origin_longitude DOUBLE PRECISION,
	release_latitude DOUBLE PRECISION,
	release_longitude DOUBLE PRECISION,
	popular_name TEXT NOT NULL,
	scientific_name TEXT,
	quantity_adult INTEGER NOT NULL DEFAULT 0,
	quantity_young INTEGER NOT NULL DEFAULT 0,
	quantity_hatchling INTEGER NOT NULL DEFAULT 0,
	quantity_total INTEGER NOT NULL,
	destination TEXT NOT NULL,
	delivery_reason TEXT,
	circumstance TEXT,
	narrative TEXT,
	species_id TEXT,
	destination_id TEXT,
	origin_id TEXT,
	health_state_id TEXT,
	life_stage_id TEXT,
	outcome_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rescue_records_date ON rescue_records(occurrence_date DESC);

CREATE TABLE IF NOT EXISTS import_logs (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	folder_id TEXT,
	modified_at TIMESTAMPTZ,
	report_number TEXT,
	report_type TEXT,
	status TEXT NOT NULL,
	missing_fields JSONB NOT NULL DEFAULT '[]'::jsonb,
	warnings JSONB NOT NULL DEFAULT '[]'::jsonb,
	error_message TEXT,
	text_excerpt TEXT,
	inserted_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	duration_ms BIGINT NOT NULL,
	input_bytes INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_logs_created_at ON import_logs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_import_logs_status ON import_logs(status);
`

// classifyPGError retries failures that happened before the server saw the
// statement and the transient server states. Constraint and syntax errors are
// permanent.
func classifyPGError(err error) resilience.Class {
	switch {
	case err == nil:
		return resilience.Class{}
	case resilience.IsContextDone(err):
		return resilience.Class{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err):
		return resilience.Class{Retryable: false, RecordFailure: false}
	case pgconn.SafeToRetry(err), pgconn.Timeout(err):
		return resilience.Class{Retryable: true, RecordFailure: true}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == "40001",
			pgErr.Code == "40P01",
			pgErr.Code == "53300",
			pgErr.Code == "57P01",
			pgErr.Code == "57P03":
			return resilience.Class{Retryable: true, RecordFailure: true}
		}
		return resilience.Class{Retryable: false, RecordFailure: false}
	}

	if errors.Is(err, sql.ErrConnDone) {
		return resilience.Class{Retryable: true, RecordFailure: true}
	}
	return resilience.Class{Retryable: false, RecordFailure: true}
}
