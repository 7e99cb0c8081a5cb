package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Run statuses mirror the service's run phases at rest.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("ingest run not found")

// Run is one recorded ingest of one source file under one mapping.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	FileName    string     `json:"fileName"`
	MappingKey  string     `json:"mappingKey"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RowsSeen    int        `json:"rowsSeen"`
	RowsEmitted int        `json:"rowsEmitted"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// InsertRun records the start of an ingest run.
func (s *Store) InsertRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, file_name, mapping_key, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.FileName, run.MappingKey, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, status, errMsg string, rowsSeen, rowsEmitted int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET status = $2, error = $3, rows_seen = $4, rows_emitted = $5, finished_at = now()
		WHERE id = $1`,
		id, status, errMsg, rowsSeen, rowsEmitted,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, file_name, mapping_key, status, error, rows_seen, rows_emitted, started_at, finished_at
		FROM ingest_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs in reverse start order.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, mapping_key, status, error, rows_seen, rows_emitted, started_at, finished_at
		FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and all of its messages, returning the number of
// messages deleted. This is the rollback path for a bad ingest.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete run: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	tag, err := tx.Exec(ctx, `DELETE FROM messages WHERE run_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	deleted := tag.RowsAffected()

	runTag, err := tx.Exec(ctx, `DELETE FROM ingest_runs WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete run: %w", err)
	}
	if runTag.RowsAffected() == 0 {
		return 0, ErrRunNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete run: %w", err)
	}
	return deleted, nil
}

// scanRun reads one run from a pgx row.
func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var finished pgtype.Timestamptz
	err := row.Scan(&run.ID, &run.FileName, &run.MappingKey, &run.Status, &run.Error,
		&run.RowsSeen, &run.RowsEmitted, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
