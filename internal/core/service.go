package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rsgrizz/chat-engine/internal/config"
	"github.com/rsgrizz/chat-engine/internal/ingest"
	"github.com/rsgrizz/chat-engine/internal/logging"
	"github.com/rsgrizz/chat-engine/internal/normalize"
	"github.com/rsgrizz/chat-engine/internal/schema"
	"github.com/rsgrizz/chat-engine/internal/store"
)

// ContextCheckInterval is how often (in rows) to check for context
// cancellation. Checking every row is wasted work; every 100 rows keeps
// cancellation latency well under a millisecond of processing.
var ContextCheckInterval = 100

// ErrUnknownMapping is returned when an IngestOptions.MappingKey names no
// registered preset.
var ErrUnknownMapping = errors.New("unknown mapping preset")

// Service is the main entry point for ingest operations.
type Service struct {
	store   RunStore
	cfg     config.IngestConfig
	limiter *RunLimiter
}

// NewService creates a Service writing through the given store.
func NewService(st RunStore, cfg config.IngestConfig) *Service {
	return &Service{
		store:   st,
		cfg:     cfg,
		limiter: NewRunLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
	}
}

// Limiter exposes the run limiter for shutdown draining.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// IngestFile runs the full pipeline over one file: open, normalize, store.
//
// fileName is the display name recorded on the run (the upload's original
// name; path may be a temp file). Configuration problems (unknown
// mapping, unsupported extension, bad zone, missing workbook support)
// return an error before a run record is created. Once the run exists,
// row-level anomalies are absorbed into the quality report and only
// stream-level failures (store errors, cancellation) fail the run.
func (s *Service) IngestFile(ctx context.Context, path, fileName string, opts IngestOptions) (*RunResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	mapping, mappingKey, err := s.resolveMapping(opts)
	if err != nil {
		return nil, err
	}

	norm, err := normalize.New(mapping, normalize.WithFallbackZone(s.fallbackZone(opts)))
	if err != nil {
		return nil, err
	}

	reader, err := ingest.Open(path,
		ingest.WithSheet(opts.Sheet),
		ingest.WithEncoding(s.encoding(opts)),
	)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	runID := uuid.New()
	startTime := time.Now()
	log := logging.ForRun(ctx, runID.String())

	err = s.store.InsertRun(ctx, store.Run{
		ID:         runID,
		FileName:   fileName,
		MappingKey: mappingKey,
		Status:     store.RunStatusRunning,
		StartedAt:  startTime,
	})
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	log.Info("ingest started", "file", fileName, "mapping", mappingKey)

	result := &RunResult{RunID: runID, FileName: fileName, MappingKey: mappingKey}
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	batch := make([]normalize.Message, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.InsertMessages(ctx, runID, batch); err != nil {
			return err
		}
		result.Stored += len(batch)
		batch = batch[:0]
		return nil
	}

	fail := func(cause error) (*RunResult, error) {
		stats := reader.Stats()
		log.Error("ingest failed", "error", cause, "rows_seen", stats.RowsSeen)
		// The cause may be this ctx being cancelled or timed out, which
		// would make the store reject the update and strand the run in
		// the running state.
		if ferr := s.store.FinishRun(context.WithoutCancel(ctx), runID, store.RunStatusFailed,
			cause.Error(), stats.RowsSeen, stats.RowsEmitted); ferr != nil {
			log.Error("finalize failed run", "error", ferr)
		}
		return nil, cause
	}

	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fail(fmt.Errorf("ingest cancelled at row %d: %w", i, err))
			}
		}

		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("read %s: %w", fileName, err))
		}

		msg := norm.Normalize(row)
		result.Quality.tally(msg, synthesizedID(row, mapping))

		batch = append(batch, msg)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return fail(fmt.Errorf("store batch: %w", err))
			}
		}
	}

	if err := flush(); err != nil {
		return fail(fmt.Errorf("store batch: %w", err))
	}

	result.Stats = reader.Stats()
	result.Duration = time.Since(startTime)
	result.DurationMs = result.Duration.Milliseconds()

	err = s.store.FinishRun(ctx, runID, store.RunStatusComplete, "",
		result.Stats.RowsSeen, result.Stats.RowsEmitted)
	if err != nil {
		return nil, fmt.Errorf("finalize run: %w", err)
	}

	log.Info("ingest complete",
		"rows_seen", result.Stats.RowsSeen,
		"stored", result.Stored,
		"unparsed_timestamps", result.Quality.UnparsedTimestamps,
		"duration_ms", result.DurationMs,
	)

	return result, nil
}

// Preview normalizes up to limit rows without persisting anything, for a
// look at how a mapping lands on a file before committing to a run.
func (s *Service) Preview(ctx context.Context, path, fileName string, opts IngestOptions, limit int) (*PreviewResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	mapping, mappingKey, err := s.resolveMapping(opts)
	if err != nil {
		return nil, err
	}

	norm, err := normalize.New(mapping, normalize.WithFallbackZone(s.fallbackZone(opts)))
	if err != nil {
		return nil, err
	}

	reader, err := ingest.Open(path,
		ingest.WithSheet(opts.Sheet),
		ingest.WithEncoding(s.encoding(opts)),
	)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &PreviewResult{FileName: fileName, MappingKey: mappingKey}

	for result.Sampled < limit {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		if result.Headers == nil {
			result.Headers = row.Headers
		}

		msg := norm.Normalize(row)
		result.Quality.tally(msg, synthesizedID(row, mapping))
		result.Messages = append(result.Messages, msg)
		result.Sampled++
	}

	// One more read tells us whether the file continues past the sample.
	if _, err := reader.Next(); err == nil {
		result.Truncated = true
	}

	return result, nil
}

// resolveMapping picks the explicit mapping when given, otherwise looks up
// the preset registry.
func (s *Service) resolveMapping(opts IngestOptions) (normalize.SchemaMapping, string, error) {
	if opts.Mapping != nil {
		return *opts.Mapping, "", opts.Mapping.Validate()
	}

	key := strings.TrimSpace(opts.MappingKey)
	if key == "" {
		return normalize.SchemaMapping{}, "", fmt.Errorf("%w: no mapping or mapping key given", ErrUnknownMapping)
	}
	preset, ok := schema.Get(key)
	if !ok {
		return normalize.SchemaMapping{}, "", fmt.Errorf("%w: %q (known: %s)",
			ErrUnknownMapping, key, strings.Join(schema.Keys(), ", "))
	}
	return preset.Mapping, preset.Key, nil
}

func (s *Service) fallbackZone(opts IngestOptions) string {
	if opts.FallbackZone != "" {
		return opts.FallbackZone
	}
	if s.cfg.FallbackZone != "" {
		return s.cfg.FallbackZone
	}
	return normalize.DefaultFallbackZone
}

func (s *Service) encoding(opts IngestOptions) string {
	if opts.Encoding != "" {
		return opts.Encoding
	}
	return s.cfg.Encoding
}

// synthesizedID reports whether the row's msg_id had to be generated:
// either no unique-id column is mapped, or the row's value for it is
// blank.
func synthesizedID(row *ingest.Row, mapping normalize.SchemaMapping) bool {
	if mapping.UniqIDCol == "" {
		return true
	}
	return strings.TrimSpace(row.Get(mapping.UniqIDCol)) == ""
}
