package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rsgrizz/chat-engine/internal/config"
	"github.com/rsgrizz/chat-engine/internal/core"
	"github.com/rsgrizz/chat-engine/internal/store"
)

// stubService records the last call and returns canned results.
type stubService struct {
	lastPath string
	lastName string
	lastOpts core.IngestOptions
	result   *core.RunResult
	preview  *core.PreviewResult
	err      error
}

func (s *stubService) IngestFile(ctx context.Context, path, fileName string, opts core.IngestOptions) (*core.RunResult, error) {
	s.lastPath = path
	s.lastName = fileName
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubService) Preview(ctx context.Context, path, fileName string, opts core.IngestOptions, limit int) (*core.PreviewResult, error) {
	s.lastPath = path
	s.lastName = fileName
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.preview, nil
}

// stubStore serves canned runs and messages.
type stubStore struct {
	runs     map[uuid.UUID]*store.Run
	messages map[uuid.UUID][]store.StoredMessage
	deleted  []uuid.UUID
}

func newStubStore() *stubStore {
	return &stubStore{
		runs:     make(map[uuid.UUID]*store.Run),
		messages: make(map[uuid.UUID][]store.StoredMessage),
	}
}

func (s *stubStore) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return run, nil
}

func (s *stubStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	var out []store.Run
	for _, r := range s.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubStore) DeleteRun(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, ok := s.runs[id]; !ok {
		return 0, store.ErrRunNotFound
	}
	s.deleted = append(s.deleted, id)
	n := int64(len(s.messages[id]))
	delete(s.runs, id)
	delete(s.messages, id)
	return n, nil
}

func (s *stubStore) ListMessages(ctx context.Context, runID uuid.UUID, f store.MessageFilter) ([]store.StoredMessage, error) {
	msgs := s.messages[runID]
	if f.Offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[f.Offset:]
	if f.Limit > 0 && len(msgs) > f.Limit {
		msgs = msgs[:f.Limit]
	}
	return msgs, nil
}

func testServer(svc IngestService, st RunStore) *Server {
	cfg := &config.Config{}
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second
	cfg.Ingest.MaxFileSize = 1 << 20
	return NewServer(svc, st, cfg)
}

func doRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(fileContent)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	s := testServer(&stubService{}, newStubStore())
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestListMappings(t *testing.T) {
	s := testServer(&stubService{}, newStubStore())
	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/mappings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Mappings []struct {
			Key string `json:"key"`
		} `json:"mappings"`
	}
	decodeBody(t, rec, &body)

	found := false
	for _, m := range body.Mappings {
		if m.Key == "generic" {
			found = true
		}
	}
	if !found {
		t.Errorf("generic preset missing from %+v", body.Mappings)
	}
}

func TestIngestUpload(t *testing.T) {
	runID := uuid.New()
	svc := &stubService{result: &core.RunResult{RunID: runID, FileName: "export.csv", Stored: 2}}
	s := testServer(svc, newStubStore())

	buf, contentType := multipartUpload(t, map[string]string{
		"mapping":  "generic",
		"zone":     "Europe/Berlin",
		"encoding": "latin-1",
	}, "export.csv", "timestamp,from,to,message\nx,a,b,hi\n")

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", buf)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	if svc.lastName != "export.csv" {
		t.Errorf("file name = %q, want export.csv", svc.lastName)
	}
	if svc.lastOpts.MappingKey != "generic" {
		t.Errorf("mapping key = %q", svc.lastOpts.MappingKey)
	}
	if svc.lastOpts.FallbackZone != "Europe/Berlin" {
		t.Errorf("zone = %q", svc.lastOpts.FallbackZone)
	}
	if svc.lastOpts.Encoding != "latin-1" {
		t.Errorf("encoding = %q", svc.lastOpts.Encoding)
	}

	// The spooled temp file is removed after the handler returns.
	if _, err := os.Stat(svc.lastPath); !os.IsNotExist(err) {
		t.Errorf("temp file %s not cleaned up", svc.lastPath)
	}

	var result core.RunResult
	decodeBody(t, rec, &result)
	if result.RunID != runID || result.Stored != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestIngestUploadExplicitMapping(t *testing.T) {
	svc := &stubService{result: &core.RunResult{}}
	s := testServer(svc, newStubStore())

	buf, contentType := multipartUpload(t, map[string]string{
		"mapping_json": `{"timestampCol":"Date","fromCol":"A","toCol":"B","messageCol":"Text"}`,
	}, "export.csv", "x\n")

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", buf)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.lastOpts.Mapping == nil || svc.lastOpts.Mapping.TimestampCol != "Date" {
		t.Errorf("mapping = %+v", svc.lastOpts.Mapping)
	}
}

func TestIngestUploadNoFile(t *testing.T) {
	s := testServer(&stubService{}, newStubStore())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("mapping", "generic")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := doRequest(t, s, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestUploadServiceError(t *testing.T) {
	svc := &stubService{err: core.ErrUnknownMapping}
	s := testServer(svc, newStubStore())

	buf, contentType := multipartUpload(t, map[string]string{"mapping": "nope"}, "export.csv", "x\n")
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", buf)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, s, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Code != "CFG004" {
		t.Errorf("code = %q, want CFG004", body.Code)
	}
}

func TestGetRun(t *testing.T) {
	st := newStubStore()
	runID := uuid.New()
	st.runs[runID] = &store.Run{ID: runID, FileName: "export.csv", Status: store.RunStatusComplete}
	s := testServer(&stubService{}, st)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var run store.Run
	decodeBody(t, rec, &run)
	if run.ID != runID {
		t.Errorf("run id = %s, want %s", run.ID, runID)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := testServer(&stubService{}, newStubStore())

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Code != "ING001" {
		t.Errorf("code = %q, want ING001", body.Code)
	}
}

func TestGetRunBadID(t *testing.T) {
	s := testServer(&stubService{}, newStubStore())

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteRun(t *testing.T) {
	st := newStubStore()
	runID := uuid.New()
	st.runs[runID] = &store.Run{ID: runID}
	st.messages[runID] = []store.StoredMessage{{MsgID: "m1"}, {MsgID: "m2"}}
	s := testServer(&stubService{}, st)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodDelete, "/api/runs/"+runID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		MessagesDeleted int64 `json:"messagesDeleted"`
	}
	decodeBody(t, rec, &body)
	if body.MessagesDeleted != 2 {
		t.Errorf("messagesDeleted = %d, want 2", body.MessagesDeleted)
	}
	if len(st.deleted) != 1 || st.deleted[0] != runID {
		t.Errorf("deleted = %v", st.deleted)
	}
}

func TestListMessagesEndpoint(t *testing.T) {
	st := newStubStore()
	runID := uuid.New()
	st.runs[runID] = &store.Run{ID: runID}
	st.messages[runID] = []store.StoredMessage{
		{MsgID: "m1", SourceRow: 1, Sender: "Alice", Recipient: "Bob", Body: "hi"},
	}
	s := testServer(&stubService{}, st)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/messages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Messages []store.StoredMessage `json:"messages"`
	}
	decodeBody(t, rec, &body)
	if len(body.Messages) != 1 || body.Messages[0].MsgID != "m1" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

func TestListMessagesBadSince(t *testing.T) {
	st := newStubStore()
	runID := uuid.New()
	st.runs[runID] = &store.Run{ID: runID}
	s := testServer(&stubService{}, st)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet,
		"/api/runs/"+runID.String()+"/messages?since=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunReport(t *testing.T) {
	st := newStubStore()
	runID := uuid.New()
	ts := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	st.runs[runID] = &store.Run{ID: runID}
	st.messages[runID] = []store.StoredMessage{
		{MsgID: "m1", SourceRow: 1, TsUTC: &ts, Sender: "Alice", Recipient: "Bob", Body: "urgent cash tonight"},
		{MsgID: "m2", SourceRow: 2, TsUTC: &ts, Sender: "Carol", Recipient: "Dan", Body: "hello"},
	}
	s := testServer(&stubService{}, st)

	rec := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String()+"/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var body struct {
		Report struct {
			Messages int `json:"messages"`
			Scored   []struct {
				MsgID string `json:"msgId"`
			} `json:"scored"`
		} `json:"report"`
	}
	decodeBody(t, rec, &body)

	if body.Report.Messages != 2 {
		t.Errorf("messages = %d, want 2", body.Report.Messages)
	}
	if len(body.Report.Scored) != 2 || body.Report.Scored[0].MsgID != "m1" {
		t.Errorf("scored = %+v, want m1 first", body.Report.Scored)
	}
}

func TestPreviewEndpoint(t *testing.T) {
	svc := &stubService{preview: &core.PreviewResult{FileName: "export.csv", Sampled: 2, Truncated: true}}
	s := testServer(svc, newStubStore())

	buf, contentType := multipartUpload(t, map[string]string{
		"mapping": "generic",
		"limit":   "2",
	}, "export.csv", "timestamp,from,to,message\nx,a,b,hi\ny,c,d,yo\nz,e,f,sup\n")

	req := httptest.NewRequest(http.MethodPost, "/api/preview", buf)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(t, s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result core.PreviewResult
	decodeBody(t, rec, &result)
	if result.Sampled != 2 || !result.Truncated {
		t.Errorf("result = %+v", result)
	}
}
