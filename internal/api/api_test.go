package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sprite-ai/revisor/internal/cache"
	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/orchestrator"
)

const testDiff = `diff --git a/main.go b/main.go
index abc1234..def5678 100644
--- a/main.go
+++ b/main.go
@@ -1,5 +1,6 @@
 package main

 func main() {
-	println("hello")
+	println("hello world")
+	println("goodbye")
 }
diff --git a/util.go b/util.go
new file mode 100644
--- /dev/null
+++ b/util.go
@@ -0,0 +1,5 @@
+package main
+
+func add(a, b int) int {
+	return a + b
+}
`

func newTestServer(deps Deps) *Server {
	return New(":0", deps, nil)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(Deps{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

func TestResultEndpoint(t *testing.T) {
	result := &model.MergedAnalysisResult{
		RunID:   "run-1",
		Summary: "2 file(s) changed",
		Impact:  model.ImpactAnalysis{RiskLevel: model.RiskLow, QualityScore: 95},
	}
	srv := newTestServer(Deps{Latest: func() *model.MergedAnalysisResult { return result }})

	req := httptest.NewRequest(http.MethodGet, "/api/result", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp model.MergedAnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if resp.RunID != "run-1" {
		t.Errorf("expected run-1, got %q", resp.RunID)
	}
}

func TestResultEndpointNoResult(t *testing.T) {
	srv := newTestServer(Deps{Latest: func() *model.MergedAnalysisResult { return nil }})

	req := httptest.NewRequest(http.MethodGet, "/api/result", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestResultEndpointDisabled(t *testing.T) {
	srv := newTestServer(Deps{})

	req := httptest.NewRequest(http.MethodGet, "/api/result", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	srv := newTestServer(Deps{CacheStats: func() cache.Stats {
		return cache.Stats{Enabled: true, Hits: 3, Misses: 1, HitRate: 75, Entries: 4}
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats cache.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if stats.Hits != 3 || stats.Entries != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestModeEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Mode: func() orchestrator.Summary {
		return orchestrator.Summary{Mode: orchestrator.ModeHybrid, AIAvailable: true, SonarAvailable: true}
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/mode", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary orchestrator.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if summary.Mode != orchestrator.ModeHybrid {
		t.Errorf("expected hybrid, got %q", summary.Mode)
	}
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer(Deps{})

	body, _ := json.Marshal(parseRequest{Diff: testDiff})
	req := httptest.NewRequest(http.MethodPost, "/api/parse", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp parseResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json decode: %v", err)
	}

	if len(resp.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(resp.Files))
	}
	if resp.Files[0].File != "main.go" {
		t.Errorf("expected first file main.go, got %q", resp.Files[0].File)
	}
	if resp.Files[1].ChangeType != model.ChangeAdded {
		t.Errorf("expected second file added, got %q", resp.Files[1].ChangeType)
	}
	if resp.Summary.TotalAdditions != 7 {
		t.Errorf("expected 7 added lines, got %d", resp.Summary.TotalAdditions)
	}
}

func TestParseEmptyDiff(t *testing.T) {
	srv := newTestServer(Deps{})

	body, _ := json.Marshal(parseRequest{Diff: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/parse", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	srv := newTestServer(Deps{})

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader("{bad json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
