package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rsgrizz/chat-engine/internal/ingest"
	"github.com/rsgrizz/chat-engine/internal/normalize"
	"github.com/rsgrizz/chat-engine/internal/store"
)

// RunStore is the slice of the store the service writes through.
// *store.Store satisfies it; tests substitute an in-memory fake.
type RunStore interface {
	InsertRun(ctx context.Context, run store.Run) error
	FinishRun(ctx context.Context, id uuid.UUID, status, errMsg string, rowsSeen, rowsEmitted int) error
	InsertMessages(ctx context.Context, runID uuid.UUID, msgs []normalize.Message) error
}

// IngestOptions selects the mapping and per-file hints for one run.
//
// Exactly one of MappingKey (a registered preset) or Mapping (an explicit
// column mapping) must be set. Sheet applies to spreadsheet sources only.
// Empty FallbackZone and Encoding fall back to the service configuration.
type IngestOptions struct {
	MappingKey   string
	Mapping      *normalize.SchemaMapping
	Sheet        string
	FallbackZone string
	Encoding     string
}

// QualityReport tallies row-level anomalies absorbed during a run.
// None of these are errors; they are the audit trail for "how much should
// I trust this export".
type QualityReport struct {
	// UnparsedTimestamps counts rows whose raw timestamp matched no known
	// layout (ts_utc stored as NULL).
	UnparsedTimestamps int `json:"unparsedTimestamps"`

	// EmptySenders and EmptyRecipients count rows with a blank party after
	// cleaning.
	EmptySenders    int `json:"emptySenders"`
	EmptyRecipients int `json:"emptyRecipients"`

	// EmptyBodies counts rows with no message text.
	EmptyBodies int `json:"emptyBodies"`

	// SynthesizedIDs counts rows whose msg_id was generated from row
	// content rather than taken from a mapped unique-id column.
	SynthesizedIDs int `json:"synthesizedIds"`

	// Threaded counts rows that carried a thread id.
	Threaded int `json:"threaded"`
}

// RunResult is the outcome of one completed ingest run.
type RunResult struct {
	RunID      uuid.UUID     `json:"runId"`
	FileName   string        `json:"fileName"`
	MappingKey string        `json:"mappingKey,omitempty"`
	Stats      ingest.Stats  `json:"stats"`
	Stored     int           `json:"stored"`
	Quality    QualityReport `json:"quality"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
}

// PreviewResult is a dry-run over the head of a file: normalized samples
// plus the quality tally for the sampled rows, nothing persisted.
type PreviewResult struct {
	FileName   string              `json:"fileName"`
	MappingKey string              `json:"mappingKey,omitempty"`
	Sampled    int                 `json:"sampled"`
	Truncated  bool                `json:"truncated"`
	Headers    []string            `json:"headers,omitempty"`
	Messages   []normalize.Message `json:"messages"`
	Quality    QualityReport       `json:"quality"`
}

// tally folds one normalized message into the report.
func (q *QualityReport) tally(m normalize.Message, synthesized bool) {
	if m.TsUTC == "" {
		q.UnparsedTimestamps++
	}
	if m.Sender == "" {
		q.EmptySenders++
	}
	if m.Recipient == "" {
		q.EmptyRecipients++
	}
	if m.Body == "" {
		q.EmptyBodies++
	}
	if synthesized {
		q.SynthesizedIDs++
	}
	if m.ThreadID != "" {
		q.Threaded++
	}
}
