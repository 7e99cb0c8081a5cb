// Package triage scores normalized messages for review priority.
//
// Scoring is deterministic: the same set of messages always produces the
// same report. Recency is measured against the newest timestamp in the
// set rather than the wall clock, so re-running a report over stored
// data never changes the output.
package triage

import (
	"sort"
	"strings"
	"time"
)

// Message is the slice of a normalized record the scorer needs. It
// mirrors the normalize.Message fields rather than importing them so
// callers can score straight from storage.
type Message struct {
	MsgID     string
	SourceRow int
	TsUTC     string
	Sender    string
	Recipient string
	Body      string
}

// Score is the per-message result.
type Score struct {
	MsgID     string   `json:"msgId"`
	SourceRow int      `json:"sourceRow"`
	Score     float64  `json:"score"`
	Keywords  []string `json:"keywords,omitempty"`
}

// PairStat counts traffic between a sender/recipient pair. The pair key
// is direction-insensitive: A->B and B->A count together.
type PairStat struct {
	PartyA string `json:"partyA"`
	PartyB string `json:"partyB"`
	Count  int    `json:"count"`
}

// Report summarizes a scored message set.
type Report struct {
	Messages int        `json:"messages"`
	Scored   []Score    `json:"scored"`
	Pairs    []PairStat `json:"pairs"`
}

// Weights tunes the three score components. Zero values fall back to
// DefaultWeights.
type Weights struct {
	Keyword   float64
	Recency   float64
	Frequency float64
}

// DefaultWeights balances keyword hits against traffic shape.
var DefaultWeights = Weights{
	Keyword:   1.0,
	Recency:   0.5,
	Frequency: 0.25,
}

// DefaultKeywords are the body terms that raise a message's priority.
// Matching is case-insensitive on whole words.
var DefaultKeywords = []string{
	"urgent",
	"asap",
	"tonight",
	"cash",
	"payment",
	"deal",
	"meet",
	"address",
	"delete",
	"password",
}

// recencyWindow is how far behind the newest message a timestamp can be
// and still earn recency credit.
const recencyWindow = 30 * 24 * time.Hour

// Scorer scores message sets with a fixed keyword list and weights.
type Scorer struct {
	keywords []string
	weights  Weights
	topN     int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithKeywords replaces the default keyword list. Terms are lowercased.
func WithKeywords(terms []string) Option {
	return func(s *Scorer) {
		s.keywords = make([]string, 0, len(terms))
		for _, t := range terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				s.keywords = append(s.keywords, t)
			}
		}
	}
}

// WithWeights replaces the default weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithTopN caps the number of scored messages kept in the report.
// Zero means keep all.
func WithTopN(n int) Option {
	return func(s *Scorer) { s.topN = n }
}

// NewScorer builds a Scorer with the default keywords and weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		keywords: DefaultKeywords,
		weights:  DefaultWeights,
		topN:     0,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.weights == (Weights{}) {
		s.weights = DefaultWeights
	}
	return s
}

// Run scores the given messages and returns a report. Messages with
// no parseable timestamp score zero on the recency component; they are
// still scored on keywords and pair frequency.
func (s *Scorer) Run(messages []Message) Report {
	report := Report{Messages: len(messages)}

	pairCounts := make(map[string]int)
	pairParties := make(map[string][2]string)
	var newest time.Time
	times := make([]time.Time, len(messages))

	for i, m := range messages {
		key, parties := pairKey(m.Sender, m.Recipient)
		if key != "" {
			pairCounts[key]++
			pairParties[key] = parties
		}
		if m.TsUTC != "" {
			if t, err := time.Parse(time.RFC3339Nano, m.TsUTC); err == nil {
				times[i] = t
				if t.After(newest) {
					newest = t
				}
			}
		}
	}

	maxPair := 0
	for _, c := range pairCounts {
		if c > maxPair {
			maxPair = c
		}
	}

	scored := make([]Score, 0, len(messages))
	for i, m := range messages {
		hits := s.matchKeywords(m.Body)

		var keywordScore float64
		if len(s.keywords) > 0 {
			keywordScore = float64(len(hits)) / float64(len(s.keywords))
		}

		var recencyScore float64
		if !times[i].IsZero() && !newest.IsZero() {
			age := newest.Sub(times[i])
			if age < recencyWindow {
				recencyScore = 1 - float64(age)/float64(recencyWindow)
			}
		}

		var freqScore float64
		if key, _ := pairKey(m.Sender, m.Recipient); key != "" && maxPair > 0 {
			freqScore = float64(pairCounts[key]) / float64(maxPair)
		}

		total := s.weights.Keyword*keywordScore +
			s.weights.Recency*recencyScore +
			s.weights.Frequency*freqScore

		scored = append(scored, Score{
			MsgID:     m.MsgID,
			SourceRow: m.SourceRow,
			Score:     total,
			Keywords:  hits,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].SourceRow < scored[j].SourceRow
	})
	if s.topN > 0 && len(scored) > s.topN {
		scored = scored[:s.topN]
	}
	report.Scored = scored

	pairs := make([]PairStat, 0, len(pairCounts))
	for key, count := range pairCounts {
		p := pairParties[key]
		pairs = append(pairs, PairStat{PartyA: p[0], PartyB: p[1], Count: count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].PartyA != pairs[j].PartyA {
			return pairs[i].PartyA < pairs[j].PartyA
		}
		return pairs[i].PartyB < pairs[j].PartyB
	})
	report.Pairs = pairs

	return report
}

// matchKeywords returns the keywords found in body as whole words,
// in keyword-list order.
func (s *Scorer) matchKeywords(body string) []string {
	if body == "" || len(s.keywords) == 0 {
		return nil
	}
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
	}) {
		words[w] = true
	}
	var hits []string
	for _, kw := range s.keywords {
		if words[kw] {
			hits = append(hits, kw)
		}
	}
	return hits
}

// pairKey builds a direction-insensitive key for a sender/recipient
// pair, plus the parties in display order. Pairs with either side
// blank are skipped.
func pairKey(sender, recipient string) (string, [2]string) {
	a := strings.ToLower(sender)
	b := strings.ToLower(recipient)
	if a == "" || b == "" {
		return "", [2]string{}
	}
	if a > b {
		a, b = b, a
		sender, recipient = recipient, sender
	}
	return a + "|" + b, [2]string{sender, recipient}
}
