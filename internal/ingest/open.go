package ingest

import (
	"path/filepath"
	"strings"
)

// Kind identifies the reader strategy for a file.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
)

// Detect classifies a path by extension. Matching is case-insensitive;
// anything other than .csv, .xlsx or .xlsm is an UnsupportedTypeError.
func Detect(path string) (Kind, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return KindCSV, nil
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	default:
		return "", &UnsupportedTypeError{Ext: ext}
	}
}

// Open picks a reader for path based on its extension and opens the
// stream. The sheet hint (WithSheet) is forwarded only to spreadsheet
// readers; the encoding hint (WithEncoding) only to the CSV reader.
// Configuration errors surface here, synchronously; a successfully opened
// stream only ever ends with io.EOF.
func Open(path string, opts ...Option) (RowReader, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kind, err := Detect(path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindXLSX:
		return openXLSX(path, o)
	default:
		return openCSV(path, o)
	}
}
