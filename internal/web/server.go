// Package web provides the HTTP server and JSON API for the ingest service.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rsgrizz/chat-engine/internal/config"
	"github.com/rsgrizz/chat-engine/internal/core"
	"github.com/rsgrizz/chat-engine/internal/store"
	"github.com/rsgrizz/chat-engine/internal/web/middleware"
)

// IngestService is the slice of the core service the handlers call.
// *core.Service satisfies it; tests substitute a stub.
type IngestService interface {
	IngestFile(ctx context.Context, path, fileName string, opts core.IngestOptions) (*core.RunResult, error)
	Preview(ctx context.Context, path, fileName string, opts core.IngestOptions, limit int) (*core.PreviewResult, error)
}

// RunStore is the read/delete side of run storage used by the handlers.
type RunStore interface {
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	DeleteRun(ctx context.Context, id uuid.UUID) (int64, error)
	ListMessages(ctx context.Context, runID uuid.UUID, f store.MessageFilter) ([]store.StoredMessage, error)
}

// Server is the HTTP server for the ingest service.
type Server struct {
	service IngestService
	store   RunStore
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer wires the router with middleware and routes.
func NewServer(service IngestService, st RunStore, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		store:   st,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	if proxies := s.cfg.Server.ProxyList(); len(proxies) > 0 {
		s.router.Use(middleware.TrustedRealIP(proxies))
	} else {
		s.router.Use(chimw.RealIP)
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.WriteTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/mappings", s.handleListMappings)

		r.Post("/ingest", s.handleIngest)
		r.Post("/preview", s.handlePreview)

		r.Get("/runs", s.handleListRuns)
		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Delete("/", s.handleDeleteRun)
			r.Get("/messages", s.handleListMessages)
			r.Get("/report", s.handleRunReport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// writeJSON encodes v as JSON and writes it to w. Encoding errors are
// logged since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// runParam parses the {runID} URL parameter.
func runParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "runID"))
}
