package api

import (
	"net/http"

	"github.com/sprite-ai/revisor/internal/diff"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.deps.Latest == nil {
		s.writeError(w, http.StatusNotFound, "result endpoint not available")
		return
	}
	result := s.deps.Latest()
	if result == nil {
		s.writeError(w, http.StatusNotFound, "no analysis has completed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.CacheStats == nil {
		s.writeError(w, http.StatusNotFound, "cache stats not available")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.CacheStats())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mode == nil {
		s.writeError(w, http.StatusNotFound, "mode diagnostics not available")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Mode())
}

// --- Parse ---

type parseRequest struct {
	Diff string `json:"diff"`
}

type parseResponse struct {
	Files   []diff.ParsedFileChange `json:"files"`
	Summary diff.Summary            `json:"summary"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Diff == "" {
		s.writeError(w, http.StatusBadRequest, "diff is required")
		return
	}

	changes, err := diff.Parse(req.Diff, nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "parsing diff: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, parseResponse{
		Files:   changes,
		Summary: diff.CreateSummary(changes),
	})
}
