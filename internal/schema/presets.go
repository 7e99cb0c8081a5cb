// Package schema ships named SchemaMapping presets for common export
// tools, so callers can ingest a known format by key instead of spelling
// out column names per request.
package schema

import (
	"github.com/rsgrizz/chat-engine/internal/normalize"
)

// Preset is a registered, ready-to-use column mapping.
type Preset struct {
	Key     string                  `json:"key"`
	Label   string                  `json:"label"`
	Mapping normalize.SchemaMapping `json:"mapping"`
}

func init() {
	// The canonical CHAT interchange layout. Tools that pre-massage their
	// exports are expected to produce these headers.
	Register(Preset{
		Key:   "generic",
		Label: "Generic export (timestamp/from/to/message)",
		Mapping: normalize.SchemaMapping{
			TimestampCol: "timestamp",
			FromCol:      "from",
			ToCol:        "to",
			MessageCol:   "message",
			UniqIDCol:    "uniqid",
			ThreadCol:    "thread",
		},
	})

	// SMS Backup & Restore style CSV conversions.
	Register(Preset{
		Key:   "smsbackup",
		Label: "SMS backup export",
		Mapping: normalize.SchemaMapping{
			TimestampCol: "Date",
			FromCol:      "From",
			ToCol:        "To",
			MessageCol:   "Body",
		},
	})

	// Twilio message log exports.
	Register(Preset{
		Key:   "twilio",
		Label: "Twilio message log",
		Mapping: normalize.SchemaMapping{
			TimestampCol: "SentDate",
			FromCol:      "From",
			ToCol:        "To",
			MessageCol:   "Body",
			UniqIDCol:    "Sid",
		},
	})

	// Slack workspace export, flattened to one row per message.
	Register(Preset{
		Key:   "slack",
		Label: "Slack export (flattened)",
		Mapping: normalize.SchemaMapping{
			TimestampCol: "ts",
			FromCol:      "user",
			ToCol:        "channel",
			MessageCol:   "text",
			UniqIDCol:    "client_msg_id",
			ThreadCol:    "thread_ts",
		},
	})
}
