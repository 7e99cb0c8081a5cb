// Package core orchestrates the CHAT ingest pipeline.
//
// This package owns no parsing and no persistence of its own: it wires the
// ingest readers, the normalizer and the store together into runs, and it
// is the only layer that knows about all three. It can be driven by web
// handlers, CLI tools, or tests without modification.
//
// # Runs
//
// Each call to [Service.IngestFile] is one run: one source file, one
// schema mapping, one UUID. The run record is written before the first row
// is read and finalized with the reader's stats when the stream ends, so a
// crash leaves an auditable "running" row rather than silence. Deleting a
// run through the store rolls back every message it produced.
//
// # Data quality
//
// Row-level anomalies never fail a run. Instead the service tallies them
// into a [QualityReport] per run (unparseable timestamps, blank parties,
// synthesized ids) so an investigator can judge how trustworthy an export
// is before leaning on it.
//
// # Concurrency
//
// Runs are limited by a semaphore ([RunLimiter]) sized from configuration.
// Within a run, processing is strictly single-threaded and pull-based: the
// reader produces one row at a time on demand and nothing is buffered
// beyond one store batch.
package core
