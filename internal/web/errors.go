package web

// errors.go provides unified error response handling for the API.
//
// The error flow:
//  1. A handler encounters an error and calls respondError(w, r, err).
//  2. The error is mapped via core.MapError to a user message with a code.
//  3. The technical error is logged with the request ID for correlation.
//  4. The user message goes out as JSON with a status from statusFor.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rsgrizz/chat-engine/internal/core"
	"github.com/rsgrizz/chat-engine/internal/ingest"
	"github.com/rsgrizz/chat-engine/internal/store"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError logs the technical error and writes the user-facing
// message with a status derived from the error type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	statusCode := statusFor(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:  userMsg.Message,
		Action: userMsg.Action,
		Code:   userMsg.Code,
	})
}

// badRequest writes a 400 with a literal message, for malformed request
// input that never reached the service layer.
func badRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: "REQ001"})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var typeErr *ingest.UnsupportedTypeError
	var encErr *ingest.UnsupportedEncodingError

	switch {
	case errors.As(err, &typeErr),
		errors.As(err, &encErr),
		errors.Is(err, ingest.ErrWorkbookSupport),
		errors.Is(err, core.ErrUnknownMapping):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
