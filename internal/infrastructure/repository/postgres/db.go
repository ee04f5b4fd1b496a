package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

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

const schemaDDL = `
CREATE TABLE IF NOT EXISTS parts (
	id TEXT PRIMARY KEY,
	part_number TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	compatible_vehicles JSONB NOT NULL DEFAULT '[]'::jsonb,
	specifications JSONB NOT NULL DEFAULT '{}'::jsonb,
	oem_status TEXT NOT NULL DEFAULT 'Unknown',
	estimated_lifespan TEXT NOT NULL DEFAULT '',
	interchangeable_parts JSONB NOT NULL DEFAULT '[]'::jsonb,
	ai_notes TEXT NOT NULL DEFAULT '',
	last_enriched TIMESTAMPTZ,
	last_image_update TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parts_brand ON parts(brand);
CREATE INDEX IF NOT EXISTS idx_parts_category ON parts(category);
CREATE INDEX IF NOT EXISTS idx_parts_created_at ON parts(created_at DESC);

CREATE TABLE IF NOT EXISTS enrichment_queue (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	batch_id TEXT NOT NULL,
	part_number TEXT NOT NULL,
	description TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0 CHECK (retry_count >= 0),
	details JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_enrichment_queue_pending ON enrichment_queue(status, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_enrichment_queue_batch ON enrichment_queue(batch_id);

CREATE TABLE IF NOT EXISTS image_cache (
	part_number TEXT PRIMARY KEY,
	image_url TEXT NOT NULL,
	quality TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	last_used TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_image_cache_last_used ON image_cache(last_used);

CREATE TABLE IF NOT EXISTS import_batches (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	archive_key TEXT NOT NULL DEFAULT '',
	lines INTEGER NOT NULL DEFAULT 0,
	headers INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	parsed INTEGER NOT NULL DEFAULT 0,
	enqueued INTEGER NOT NULL DEFAULT 0,
	duplicates INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_batches_created_at ON import_batches(created_at DESC);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	vat_number TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL,
	vat_rate NUMERIC(6,4) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_customers_code ON customers(code);
`

// EnsureSchema creates every table the api and worker use.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026011001)); err != nil {
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

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func placeholders(start, n int) string {
	out := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, fmt.Sprintf("$%d", start+i)...)
	}
	return string(out)
}
