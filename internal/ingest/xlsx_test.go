package ingest

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves a workbook with the given rows on the named sheet.
func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestXLSXReadRows(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"timestamp", "from", "to", "message"},
		{"2026-02-21 10:00:00", " Alice ", "Bob", "hi"},
		{"2026-02-21 10:01:00", "Bob", "Alice", "hey"},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].SourceRow != 1 || rows[1].SourceRow != 2 {
		t.Errorf("source rows = %d, %d, want 1, 2", rows[0].SourceRow, rows[1].SourceRow)
	}
	if got := rows[0].Get("from"); got != "Alice" {
		t.Errorf("from = %q, want %q", got, "Alice")
	}

	stats := r.Stats()
	if stats.RowsSeen != 2 || stats.RowsEmitted != 2 {
		t.Errorf("stats = %+v, want 2/2", stats)
	}
}

func TestXLSXRaggedRowPadded(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"a", "b", "c"},
		{"1"},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Get("b"); got != "" {
		t.Errorf("b = %q, want empty", got)
	}
	if got := rows[0].Get("c"); got != "" {
		t.Errorf("c = %q, want empty", got)
	}
}

func TestXLSXBlankHeaderRow(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"  ", " "},
		{"orphan", "row"},
	})

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

func TestXLSXNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Log", [][]any{
		{"from", "message"},
		{"Alice", "on the named sheet"},
	})

	r, err := Open(path, WithSheet("Log"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rows := drain(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := rows[0].Get("message"); got != "on the named sheet" {
		t.Errorf("message = %q", got)
	}
}

func TestXLSXMissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"a"},
	})

	if _, err := Open(path, WithSheet("NoSuchSheet")); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}
