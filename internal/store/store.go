// Package store persists ingest runs and normalized messages in
// PostgreSQL.
//
// Messages are only ever written in the context of a run: one run per
// source file per mapping, identified by UUID. That makes rollback exact
// (delete by run id) and keeps msg_id uniqueness scoped the way the
// pipeline guarantees it: within a run, not globally.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store wraps a pgx pool with the queries the service needs.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on top of an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for transaction management.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

const schemaDDL = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id           UUID PRIMARY KEY,
	file_name    TEXT NOT NULL,
	mapping_key  TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	rows_seen    INTEGER NOT NULL DEFAULT 0,
	rows_emitted INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS messages (
	run_id     UUID NOT NULL REFERENCES ingest_runs(id) ON DELETE CASCADE,
	msg_id     TEXT NOT NULL,
	source_row INTEGER NOT NULL,
	ts_raw     TEXT NOT NULL,
	ts_utc     TIMESTAMPTZ,
	sender     TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	body       TEXT NOT NULL,
	thread_id  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_run ON messages (run_id, source_row);
CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages (ts_utc);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	return err
}
