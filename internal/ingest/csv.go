package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// csvReader streams data rows from a delimited text file.
//
// The first line is the header; column order is the file's column order.
// A file with no header line at all yields an empty stream with zero stats
// rather than an error.
type csvReader struct {
	f       *os.File
	r       *csv.Reader
	headers []string
	next    int
	stats   Stats
	done    bool
	closed  bool
}

// openCSV opens a delimited-text stream. The raw bytes pass through BOM
// stripping and permissive decoding (see streaming.go) before parsing, so
// one bad byte never kills the whole export.
func openCSV(path string, opts options) (RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	decoded, err := decodeReader(f, opts.encoding)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	cr := &csvReader{f: f, r: r}

	header, err := r.Read()
	switch {
	case err == io.EOF:
		// No header row: empty stream, zero stats.
		cr.done = true
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	default:
		trimmed := make([]string, len(header))
		for i, h := range header {
			trimmed[i] = strings.TrimSpace(h)
		}
		cr.headers = DedupeHeaders(trimmed)
	}

	return cr, nil
}

func (c *csvReader) Next() (*Row, error) {
	if c.done {
		return nil, io.EOF
	}

	record, err := c.r.Read()
	if err == io.EOF {
		c.done = true
		return nil, io.EOF
	}
	if err != nil {
		// Parse errors at this point are structural (the reader runs with
		// LazyQuotes and unchecked field counts); surface them rather than
		// guessing at row boundaries.
		c.done = true
		return nil, fmt.Errorf("read row %d: %w", c.next+1, err)
	}

	c.stats.RowsSeen++
	c.next++

	values := make(map[string]string, len(c.headers))
	for i, h := range c.headers {
		if i < len(record) {
			values[h] = strings.TrimSpace(record[i])
		} else {
			values[h] = ""
		}
	}

	c.stats.RowsEmitted++
	return &Row{Headers: c.headers, Values: values, SourceRow: c.next}, nil
}

func (c *csvReader) Stats() Stats { return c.stats }

func (c *csvReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.f.Close()
}
