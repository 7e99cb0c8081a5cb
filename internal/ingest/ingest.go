package ingest

import (
	"fmt"
	"strings"
)

// Row is one raw data row with provenance.
//
// Values is keyed by the (deduplicated) header names exactly as read from
// the file; every value is trimmed of surrounding whitespace. Headers
// preserves the file's column order. SourceRow is 1-based for the first
// data row; the header row is not counted.
type Row struct {
	Headers   []string
	Values    map[string]string
	SourceRow int
}

// Get returns the trimmed value for a column, or "" if the column is
// absent from the row.
func (r *Row) Get(col string) string {
	return r.Values[col]
}

// Stats summarizes an exhausted stream.
//
// RowsEmitted is never greater than RowsSeen. The two are currently always
// equal; the gap exists so readers may grow row filtering without changing
// the contract.
type Stats struct {
	RowsSeen    int
	RowsEmitted int
}

// RowReader is a lazy, forward-only stream of rows from a single file.
//
// Next returns io.EOF once the stream is exhausted. Stats is only
// meaningful after Next has returned io.EOF. Close releases the underlying
// file handle and is safe to call at any point, including mid-stream.
type RowReader interface {
	Next() (*Row, error)
	Stats() Stats
	Close() error
}

// UnsupportedTypeError is returned by Open for file extensions that no
// reader handles.
type UnsupportedTypeError struct {
	Ext string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported input type: %q (want .csv, .xlsx or .xlsm)", e.Ext)
}

// options collects per-stream settings supplied to Open.
type options struct {
	sheet    string
	encoding string
}

// Option configures a reader created by Open.
type Option func(*options)

// WithSheet selects a named worksheet. Only spreadsheet readers honor it;
// the CSV reader ignores the hint. An empty name means the workbook's
// active sheet.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

// WithEncoding sets the source text encoding for delimited input.
// Supported names: "utf-8" (default), "latin-1"/"iso-8859-1" and
// "windows-1252". Unknown names fail at Open time.
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding = strings.TrimSpace(name) }
}
