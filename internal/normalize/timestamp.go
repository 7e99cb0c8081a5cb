package normalize

import (
	"strings"
	"time"
)

// Timestamp layouts, split by whether the text carries its own offset.
// Naive layouts are interpreted in the fallback zone before conversion to
// UTC; zoned layouts convert directly. Order matters: parsing stops at the
// first match, ISO forms first, then the common export patterns.
var (
	zonedLayouts = []string{
		time.RFC3339Nano, // fraction optional, trailing "Z" or numeric offset
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z0700",
	}

	naiveLayouts = []string{
		// Optional fractions cover the ISO forms with and without
		// microseconds, for both "T" and space separators.
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/06 15:04:05",
		"1/2/06 15:04",
	}
)

// utcLayout renders ISO-8601 in UTC with a trailing "Z" (never "+00:00")
// and the fractional seconds that were actually parsed.
const utcLayout = "2006-01-02T15:04:05.999999999Z07:00"

// ParseTimestampUTC canonicalizes a raw export timestamp to ISO-8601 UTC.
//
// An empty (or all-whitespace) input and any input matching no known
// layout both return ok=false with no error: downstream consumers treat a
// missing canonical time as "unparseable, inspect the raw value". Naive
// matches are placed in loc using that zone's daylight-saving rules at the
// parsed date.
func ParseTimestampUTC(raw string, loc *time.Location) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(utcLayout), true
		}
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC().Format(utcLayout), true
		}
	}

	return "", false
}
