package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/medtracker/internal/handler/document"
	"github.com/jwalitptl/medtracker/internal/handler/health"
	"github.com/jwalitptl/medtracker/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker/internal/repository/memory"
	documentService "github.com/jwalitptl/medtracker/internal/service/document"
)

func setup(t *testing.T, cfg RouterConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewDocumentRepository(nil)
	svc := documentService.NewService(repo, nil, nil, zerolog.Nop())
	r := NewRouter(cfg, prometheus.New("test", promclient.NewRegistry()), health.NewHandler(svc), document.NewHandler(svc))
	r.Setup()
	return r.Engine()
}

func serve(e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestRouter_Routes(t *testing.T) {
	e := setup(t, DefaultRouterConfig())

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health/ready", "").Code)

	w := serve(e, http.MethodPost, "/api/save", `{"userId":"user-1","data":"{}"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = serve(e, http.MethodGet, "/api/load?userId=user-1", "")
	assert.JSONEq(t, `{"data":"{}"}`, w.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, serve(e, http.MethodGet, "/api/save", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(e, http.MethodPost, "/api/load", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/api/unknown", "").Code)

	w = serve(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="POST",path="/api/save",status="200"} 1`)
}

func TestRouter_RateLimitOnlyOnAPI(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	e := setup(t, cfg)

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/api/load", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/api/load", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health/live", "").Code)
}

func TestRouter_CompressesAPI(t *testing.T) {
	e := setup(t, DefaultRouterConfig())
	serve(e, http.MethodPost, "/api/save", `{"userId":"user-1","data":"{}"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/load?userId=user-1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	cfg := DefaultRouterConfig()
	cfg.Compress = nil
	e = setup(t, cfg)
	req = httptest.NewRequest(http.MethodGet, "/api/load?userId=user-1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}
