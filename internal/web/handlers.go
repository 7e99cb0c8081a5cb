package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rsgrizz/chat-engine/internal/schema"
	"github.com/rsgrizz/chat-engine/internal/store"
	"github.com/rsgrizz/chat-engine/internal/triage"
)

// handleListMappings returns the registered mapping presets.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"mappings": schema.All()})
}

// handleListRuns returns recent ingest runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"runs": runs})
}

// handleGetRun returns one run's record.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runParam(r)
	if err != nil {
		badRequest(w, "invalid run id")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, run)
}

// handleDeleteRun rolls back a run: its messages and the run record.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := runParam(r)
	if err != nil {
		badRequest(w, "invalid run id")
		return
	}

	deleted, err := s.store.DeleteRun(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"runId": id, "messagesDeleted": deleted})
}

// handleListMessages returns a run's messages in source order, with
// optional since/until/party/limit/offset filters.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := runParam(r)
	if err != nil {
		badRequest(w, "invalid run id")
		return
	}

	filter, err := messageFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	// Confirm the run exists so an unknown id is a 404 rather than an
	// empty list.
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}

	msgs, err := s.store.ListMessages(r.Context(), id, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"runId": id, "messages": msgs})
}

// handleRunReport scores a run's messages and returns the triage report.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := runParam(r)
	if err != nil {
		badRequest(w, "invalid run id")
		return
	}

	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}

	topN, _ := strconv.Atoi(r.URL.Query().Get("top"))
	if topN <= 0 {
		topN = 50
	}

	msgs, err := s.allMessages(r, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	scorer := triage.NewScorer(triage.WithTopN(topN))
	report := scorer.Run(msgs)
	writeJSON(w, map[string]any{"runId": id, "report": report})
}

// allMessages pages through a run's full message set for scoring.
func (s *Server) allMessages(r *http.Request, id uuid.UUID) ([]triage.Message, error) {
	const page = 1000

	var out []triage.Message
	for offset := 0; ; offset += page {
		batch, err := s.store.ListMessages(r.Context(), id, store.MessageFilter{
			Limit:  page,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range batch {
			tm := triage.Message{
				MsgID:     m.MsgID,
				SourceRow: m.SourceRow,
				Sender:    m.Sender,
				Recipient: m.Recipient,
				Body:      m.Body,
			}
			if m.TsUTC != nil {
				tm.TsUTC = m.TsUTC.UTC().Format(time.RFC3339Nano)
			}
			out = append(out, tm)
		}
		if len(batch) < page {
			return out, nil
		}
	}
}

// messageFilter parses the list-messages query parameters.
func messageFilter(r *http.Request) (store.MessageFilter, error) {
	var f store.MessageFilter
	q := r.URL.Query()

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, &paramError{"since"}
		}
		f.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, &paramError{"until"}
		}
		f.Until = &t
	}
	f.Party = q.Get("party")
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter, want RFC 3339 timestamp"
}
