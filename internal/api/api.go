// Package api implements the read-only HTTP API exposing analysis
// results, cache statistics, and orchestrator diagnostics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sprite-ai/revisor/internal/cache"
	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/orchestrator"
)

// Deps are the read-side capabilities the server exposes. Any nil
// function disables its endpoint with 404.
type Deps struct {
	Latest     func() *model.MergedAnalysisResult
	CacheStats func() cache.Stats
	Mode       func() orchestrator.Summary
}

// Server is the revisor HTTP API server.
type Server struct {
	addr   string
	deps   Deps
	mux    *http.ServeMux
	server *http.Server
	log    *slog.Logger
}

// New creates a new API server.
func New(addr string, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{addr: addr, deps: deps, log: log}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/result", s.handleResult)
	s.mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("GET /api/mode", s.handleMode)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log.Info("revisor API server listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Warn("json encode error", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
