package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxReader adapts a WorkbookReader to the RowReader contract: header
// handling, dedupe, trimming and stats are shared with the CSV variant.
type xlsxReader struct {
	wb      WorkbookReader
	headers []string
	next    int
	stats   Stats
	done    bool
	closed  bool
}

// openXLSX opens a spreadsheet stream through the pluggable workbook
// capability. A missing capability is a configuration error; an entirely
// blank header row is an empty stream, not an error.
func openXLSX(path string, opts options) (RowReader, error) {
	if OpenWorkbook == nil {
		return nil, ErrWorkbookSupport
	}

	wb, err := OpenWorkbook(path, opts.sheet)
	if err != nil {
		return nil, err
	}

	xr := &xlsxReader{wb: wb}

	header, err := wb.NextRow()
	switch {
	case err == io.EOF:
		xr.done = true
	case err != nil:
		wb.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	default:
		trimmed := make([]string, len(header))
		for i, h := range header {
			trimmed[i] = strings.TrimSpace(h)
		}
		if allBlank(trimmed) {
			xr.done = true
		} else {
			xr.headers = DedupeHeaders(trimmed)
		}
	}

	return xr, nil
}

func (x *xlsxReader) Next() (*Row, error) {
	if x.done {
		return nil, io.EOF
	}

	cells, err := x.wb.NextRow()
	if err == io.EOF {
		x.done = true
		return nil, io.EOF
	}
	if err != nil {
		x.done = true
		return nil, fmt.Errorf("read row %d: %w", x.next+1, err)
	}

	x.stats.RowsSeen++
	x.next++

	// Cells past the row's populated width read as empty strings; sheets
	// routinely store ragged rows.
	values := make(map[string]string, len(x.headers))
	for i, h := range x.headers {
		if i < len(cells) {
			values[h] = strings.TrimSpace(cells[i])
		} else {
			values[h] = ""
		}
	}

	x.stats.RowsEmitted++
	return &Row{Headers: x.headers, Values: values, SourceRow: x.next}, nil
}

func (x *xlsxReader) Stats() Stats { return x.stats }

func (x *xlsxReader) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	return x.wb.Close()
}

// excelizeWorkbook is the single WorkbookReader variant, backed by
// excelize's streaming row iterator so the workbook is never loaded
// eagerly.
type excelizeWorkbook struct {
	file *excelize.File
	rows *excelize.Rows
}

func openExcelizeWorkbook(path, sheet string) (WorkbookReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open sheet %q: %w", sheet, err)
	}

	return &excelizeWorkbook{file: f, rows: rows}, nil
}

func (w *excelizeWorkbook) NextRow() ([]string, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	cells, err := w.rows.Columns()
	if err != nil {
		return nil, err
	}
	return cells, nil
}

func (w *excelizeWorkbook) Close() error {
	w.rows.Close()
	return w.file.Close()
}
