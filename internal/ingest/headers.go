package ingest

import "fmt"

// BlankHeaderName replaces an empty column header before deduplication.
const BlankHeaderName = "COL"

// DedupeHeaders makes column names unique, left to right.
//
// The first occurrence of a name is kept verbatim; repeats get a numeric
// suffix starting at 2, so ["Message","Message","X"] becomes
// ["Message","Message_2","X"]. Blank names become BlankHeaderName first and
// then dedupe like any other name. Exports from phone-extraction tools
// repeat and omit headers often enough that map keys must be made stable
// here rather than trusted.
func DedupeHeaders(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		base := h
		if base == "" {
			base = BlankHeaderName
		}
		seen[base]++
		if n := seen[base]; n > 1 {
			out = append(out, fmt.Sprintf("%s_%d", base, n))
		} else {
			out = append(out, base)
		}
	}
	return out
}

// allBlank reports whether every header cell is empty after trimming.
func allBlank(headers []string) bool {
	for _, h := range headers {
		if h != "" {
			return false
		}
	}
	return true
}
