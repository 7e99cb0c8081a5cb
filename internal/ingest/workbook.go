package ingest

import "errors"

// ErrWorkbookSupport is returned by Open for spreadsheet paths when no
// workbook implementation is wired in. This is a deployment problem, not a
// data problem: delimited-text-only builds may blank out OpenWorkbook to
// drop the spreadsheet dependency.
var ErrWorkbookSupport = errors.New("spreadsheet support is not available in this build; convert the file to CSV before ingest")

// WorkbookReader streams raw cell rows out of one worksheet.
// NextRow returns io.EOF once the sheet is exhausted.
type WorkbookReader interface {
	NextRow() ([]string, error)
	Close() error
}

// WorkbookOpenFunc opens the named sheet of a workbook file, or the
// workbook's active sheet when sheet is empty.
type WorkbookOpenFunc func(path, sheet string) (WorkbookReader, error)

// OpenWorkbook is the pluggable spreadsheet capability. The default
// implementation (xlsx.go) streams via excelize; it has exactly one
// variant, and setting it to nil models an environment without spreadsheet
// support.
var OpenWorkbook WorkbookOpenFunc = openExcelizeWorkbook
