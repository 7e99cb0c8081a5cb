// Package normalize maps raw ingest rows into stable message records.
//
// This is the second stage of the CHAT pipeline. Given one ingest.Row and
// one SchemaMapping, [Normalizer.Normalize] produces exactly one [Message]:
// a pure function of its inputs apart from the fallback timezone fixed at
// construction. Missing mapped columns become empty strings, unparseable
// timestamps leave TsUTC empty, and nothing at this stage ever errors per
// row; data quality is audited downstream by inspecting the output.
package normalize

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/rsgrizz/chat-engine/internal/ingest"
)

// DefaultFallbackZone is the civil timezone assumed for timestamps that
// carry no offset information.
const DefaultFallbackZone = "America/New_York"

// Message is the stable output unit consumed by the rest of the pipeline.
//
// MsgID is deterministic: a pure function of the mapped unique-id column
// when present, otherwise of (SourceRow, TsRaw, Sender, Recipient). The
// same raw row always yields the same id, within and across runs. TsRaw
// preserves the source text exactly; TsUTC is ISO-8601 UTC ("Z" suffix) or
// empty when the raw value could not be parsed.
type Message struct {
	MsgID     string `json:"msgId"`
	SourceRow int    `json:"sourceRow"`

	TsRaw string `json:"tsRaw"`
	TsUTC string `json:"tsUtc,omitempty"`

	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`

	ThreadID string `json:"threadId,omitempty"`
}

// Normalizer turns raw rows into Messages under a fixed mapping and
// fallback zone. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	mapping SchemaMapping
	loc     *time.Location
}

// Option configures a Normalizer.
type Option func(*settings)

type settings struct {
	zone string
}

// WithFallbackZone overrides the zone assumed for naive timestamps.
// The name must be an IANA zone identifier, e.g. "Europe/Berlin".
func WithFallbackZone(name string) Option {
	return func(s *settings) { s.zone = name }
}

// New builds a Normalizer. The mapping is validated and the fallback zone
// resolved against the host's timezone database up front, so per-row
// normalization can never fail.
func New(mapping SchemaMapping, opts ...Option) (*Normalizer, error) {
	s := settings{zone: DefaultFallbackZone}
	for _, opt := range opts {
		opt(&s)
	}

	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(s.zone)
	if err != nil {
		return nil, fmt.Errorf("load fallback zone %q: %w", s.zone, err)
	}

	return &Normalizer{mapping: mapping, loc: loc}, nil
}

// Normalize produces one Message from one raw row. Rows never map to more
// or fewer than one message.
func (n *Normalizer) Normalize(row *ingest.Row) Message {
	m := n.mapping

	tsRaw := strings.TrimSpace(row.Get(m.TimestampCol))
	sender := CleanParty(row.Get(m.FromCol))
	recipient := CleanParty(row.Get(m.ToCol))
	body := strings.TrimSpace(row.Get(m.MessageCol))

	threadID := ""
	if m.ThreadCol != "" {
		threadID = strings.TrimSpace(row.Get(m.ThreadCol))
	}

	msgID := ""
	if m.UniqIDCol != "" {
		msgID = strings.TrimSpace(row.Get(m.UniqIDCol))
	}
	if msgID == "" {
		msgID = fmt.Sprintf("ROW%d:%s", row.SourceRow, stableKey(tsRaw, sender, recipient))
	}

	tsUTC, _ := ParseTimestampUTC(tsRaw, n.loc)

	return Message{
		MsgID:     msgID,
		SourceRow: row.SourceRow,
		TsRaw:     tsRaw,
		TsUTC:     tsUTC,
		Sender:    sender,
		Recipient: recipient,
		Body:      body,
		ThreadID:  threadID,
	}
}

// CleanParty trims a sender/recipient value and collapses internal
// whitespace runs to single spaces.
func CleanParty(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// stableKey is the decimal string of a 32-bit FNV-1a hash over
// "tsRaw|sender|recipient". FNV-1a is cheap and dependency-free; nothing
// here needs a cryptographic property, only that previously generated ids
// reproduce bit for bit across runs and releases.
func stableKey(tsRaw, sender, recipient string) string {
	h := fnv.New32a()
	h.Write([]byte(tsRaw))
	h.Write([]byte{'|'})
	h.Write([]byte(sender))
	h.Write([]byte{'|'})
	h.Write([]byte(recipient))
	return fmt.Sprintf("%d", h.Sum32())
}
