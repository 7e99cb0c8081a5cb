// Package ingest streams rows out of exported communication logs.
//
// This package is the first stage of the CHAT pipeline. It knows nothing
// about message semantics: it turns a tabular file (CSV or XLSX) into a
// lazy sequence of raw header-keyed rows with provenance, and nothing more.
// Field mapping and normalization live in the normalize package.
//
// # Readers
//
// A [RowReader] is a forward-only, single-pass stream. [Open] picks the
// reader implementation from the file extension:
//
//	r, err := ingest.Open("export.csv")
//	if err != nil { ... }
//	defer r.Close()
//	for {
//	    row, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // row.SourceRow is 1-based and excludes the header row
//	}
//	stats := r.Stats() // valid only after Next returned io.EOF
//
// Streams are not restartable; call [Open] again to re-read a file.
//
// # Error policy
//
// Configuration problems (unknown extension, missing workbook support, a
// sheet that does not exist) fail at Open time. Data problems never abort
// the stream: undecodable bytes are substituted, short rows are padded with
// empty strings, and duplicate or blank column headers are renamed
// deterministically.
package ingest
