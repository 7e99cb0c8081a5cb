package web

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rsgrizz/chat-engine/internal/core"
	"github.com/rsgrizz/chat-engine/internal/normalize"
)

// handleIngest accepts a multipart upload and runs the full pipeline:
// parse, normalize, store. The file is spooled to a temp path first so
// the spreadsheet reader can seek.
//
// Form fields:
//   - file: the export (required)
//   - mapping: registered preset key
//   - mapping_json: explicit column mapping, overrides the preset
//   - sheet: worksheet name for spreadsheet sources
//   - zone: IANA fallback zone for naive timestamps
//   - encoding: text encoding for delimited sources
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	path, fileName, opts, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer os.Remove(path)

	result, err := s.service.IngestFile(r.Context(), path, fileName, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handlePreview runs the pipeline over the head of an upload without
// persisting anything. Same form fields as ingest, plus limit.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path, fileName, opts, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer os.Remove(path)

	limit, _ := strconv.Atoi(r.FormValue("limit"))

	result, err := s.service.Preview(r.Context(), path, fileName, opts, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// readUpload validates the multipart form, spools the file to a temp
// path and collects the ingest options. On failure it writes the error
// response and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (path, fileName string, opts core.IngestOptions, ok bool) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		badRequest(w, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "no file provided")
		return
	}
	defer file.Close()

	opts.MappingKey = r.FormValue("mapping")
	opts.Sheet = r.FormValue("sheet")
	opts.FallbackZone = r.FormValue("zone")
	opts.Encoding = r.FormValue("encoding")

	if mappingJSON := r.FormValue("mapping_json"); mappingJSON != "" {
		var m normalize.SchemaMapping
		if err := json.Unmarshal([]byte(mappingJSON), &m); err != nil {
			badRequest(w, "invalid mapping_json format")
			return
		}
		opts.Mapping = &m
	}

	path, err = spoolUpload(file, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	return path, header.Filename, opts, true
}

// spoolUpload copies the upload to a temp file, keeping the original
// extension so format detection works on the spooled path.
func spoolUpload(file multipart.File, name string) (string, error) {
	tmp, err := os.CreateTemp("", "chat-ingest-*"+filepath.Ext(name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
