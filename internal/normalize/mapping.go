package normalize

import (
	"fmt"
	"strings"
)

// SchemaMapping names the raw columns that supply each normalized field.
//
// Column names must match the source headers verbatim, including case:
// export tools disagree about almost everything else, so the mapping layer
// refuses to guess. UniqIDCol and ThreadCol are optional; when UniqIDCol is
// unset (or its value is blank for a given row) a deterministic message id
// is synthesized instead.
//
// A mapping is built once before normalization begins and never mutated.
type SchemaMapping struct {
	TimestampCol string `json:"timestampCol"`
	FromCol      string `json:"fromCol"`
	ToCol        string `json:"toCol"`
	MessageCol   string `json:"messageCol"`
	UniqIDCol    string `json:"uniqidCol,omitempty"`
	ThreadCol    string `json:"threadCol,omitempty"`
}

// Validate checks that all mandatory columns are named.
func (m SchemaMapping) Validate() error {
	var missing []string
	for _, c := range []struct{ name, val string }{
		{"timestampCol", m.TimestampCol},
		{"fromCol", m.FromCol},
		{"toCol", m.ToCol},
		{"messageCol", m.MessageCol},
	} {
		if strings.TrimSpace(c.val) == "" {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mapping missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
