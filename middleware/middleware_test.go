package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seo-optimizer/auditor/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerRecovers(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"error":"An unexpected error occurred"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := range 2 {
		if w := serve(r, http.MethodGet, "/", "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := serve(r, http.MethodGet, "/", "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/", "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("another client should not be limited, got %d", w.Code)
	}

	fixed = fixed.Add(time.Second)
	if w := serve(r, http.MethodGet, "/", "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Errorf("expected a refilled token after one second, got %d", w.Code)
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(11 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.Prune()

	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor was not pruned")
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Error("recent visitor was pruned")
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = RequestIDFrom(c) })

	w := serve(r, http.MethodGet, "/", "")
	got := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected a generated UUID, got %q", got)
	}
	if seen != got {
		t.Errorf("handler saw %q, header has %q", seen, got)
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("expected the incoming ID %q to be kept, got %q", incoming, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "not a uuid" {
		t.Error("malformed incoming ID should be replaced")
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/api/analyze", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodOptions, "/api/analyze", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestStatsTracksAnalysisRoutes(t *testing.T) {
	dir := t.TempDir()
	stats := logging.NewStatistics(dir, true)

	r := gin.New()
	r.Use(Stats(stats, "/api/analyze"))
	r.POST("/api/analyze", func(c *gin.Context) {
		stats.TrackAnalysis("https://example.com/", 80, "good", false)
		c.Status(http.StatusOK)
	})
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/api/health", "10.0.0.1:1")
	serve(r, http.MethodPost, "/api/analyze", "10.0.0.2:1")

	snap := stats.Snapshot()
	if got := snap["uniqueVisitors24h"]; got != 2 {
		t.Errorf("uniqueVisitors24h = %v, want 2", got)
	}
	if stats.RequestCount != 1 {
		t.Errorf("expected one tracked analysis request, got %d", stats.RequestCount)
	}
	if _, err := os.Stat(filepath.Join(dir, "statistics.json")); err == nil {
		t.Error("statistics should not be saved before the hundredth analysis")
	}
}
