package ingest

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func drain(t *testing.T, r RowReader) []*Row {
	t.Helper()
	var rows []*Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestCSVReadRows(t *testing.T) {
	path := writeTemp(t, "export.csv",
		"timestamp,from,to,message\n"+
			"2026-02-21 10:00:00, Alice ,Bob,hi\n"+
			"2026-02-21 10:01:00,Bob,Alice,hey\n"+
			"2026-02-21 10:02:00,Alice,Bob,\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	wantHeaders := []string{"timestamp", "from", "to", "message"}
	if !reflect.DeepEqual(rows[0].Headers, wantHeaders) {
		t.Errorf("headers = %v, want %v", rows[0].Headers, wantHeaders)
	}

	for i, row := range rows {
		if row.SourceRow != i+1 {
			t.Errorf("row %d SourceRow = %d, want %d", i, row.SourceRow, i+1)
		}
	}

	// Cell values are whitespace-trimmed.
	if got := rows[0].Get("from"); got != "Alice" {
		t.Errorf("from = %q, want %q", got, "Alice")
	}
	if got := rows[2].Get("message"); got != "" {
		t.Errorf("message = %q, want empty", got)
	}

	stats := r.Stats()
	if stats.RowsSeen != 3 || stats.RowsEmitted != 3 {
		t.Errorf("stats = %+v, want 3/3", stats)
	}
}

func TestCSVShortRecordPadded(t *testing.T) {
	path := writeTemp(t, "short.csv",
		"a,b,c\n"+
			"1,2\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Get("c"); got != "" {
		t.Errorf("c = %q, want empty", got)
	}
}

func TestCSVHeaderDedupe(t *testing.T) {
	path := writeTemp(t, "dupes.csv",
		"Message,Message,X\n"+
			"one,two,three\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Get("Message"); got != "one" {
		t.Errorf("Message = %q, want %q", got, "one")
	}
	if got := rows[0].Get("Message_2"); got != "two" {
		t.Errorf("Message_2 = %q, want %q", got, "two")
	}
}

func TestCSVWithBOM(t *testing.T) {
	path := writeTemp(t, "bom.csv",
		"\xEF\xBB\xBFtimestamp,from\n"+
			"x,y\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	// The BOM must not leak into the first header name.
	if got := rows[0].Get("timestamp"); got != "x" {
		t.Errorf("timestamp = %q, want %q", got, "x")
	}
}

func TestCSVEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.csv", "")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
	if stats := r.Stats(); stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestCSVHeaderOnly(t *testing.T) {
	path := writeTemp(t, "header.csv", "a,b,c\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next = %v, want io.EOF", err)
	}
	if stats := r.Stats(); stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestCSVLatin1Encoding(t *testing.T) {
	path := writeTemp(t, "latin.csv",
		"from,message\n"+
			"Ren\xe9,ol\xe9\n")

	r, err := Open(path, WithEncoding("latin-1"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Get("from"); got != "René" {
		t.Errorf("from = %q, want %q", got, "René")
	}
}

func TestCSVUnsupportedEncoding(t *testing.T) {
	path := writeTemp(t, "x.csv", "a\n1\n")

	_, err := Open(path, WithEncoding("utf-16"))
	var encErr *UnsupportedEncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected UnsupportedEncodingError, got %v", err)
	}
}

func TestCSVCloseIdempotent(t *testing.T) {
	path := writeTemp(t, "x.csv", "a\n1\n")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
