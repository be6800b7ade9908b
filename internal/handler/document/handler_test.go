package document

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/internal/repository/memory"
	documentService "github.com/jwalitptl/medtracker/internal/service/document"
)

type countingRepo struct {
	repository.DocumentRepository
	calls int
}

func (r *countingRepo) Load(ctx context.Context, userID string) (string, bool, error) {
	r.calls++
	return r.DocumentRepository.Load(ctx, userID)
}

func (r *countingRepo) Save(ctx context.Context, userID, data string) error {
	r.calls++
	return r.DocumentRepository.Save(ctx, userID, data)
}

func setupRouter(repo repository.DocumentRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := documentService.NewService(repo, nil, nil, zerolog.Nop())
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLoad_MissingUserID(t *testing.T) {
	repo := &countingRepo{DocumentRepository: memory.NewDocumentRepository(nil)}
	r := setupRouter(repo)

	w := perform(r, http.MethodGet, "/api/load", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
	assert.Zero(t, repo.calls)
}

func TestLoad_NothingStored(t *testing.T) {
	r := setupRouter(memory.NewDocumentRepository(nil))

	w := perform(r, http.MethodGet, "/api/load?userId=user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":null}`, w.Body.String())
}

func TestSaveThenLoad(t *testing.T) {
	r := setupRouter(memory.NewDocumentRepository(nil))

	w := perform(r, http.MethodPost, "/api/save", `{"userId":"user-1","data":"{\"medications\":[]}"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = perform(r, http.MethodGet, "/api/load?userId=user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":"{\"medications\":[]}"}`, w.Body.String())
}

func TestSave_Validation(t *testing.T) {
	repo := &countingRepo{DocumentRepository: memory.NewDocumentRepository(nil)}
	r := setupRouter(repo)

	for _, body := range []string{`{"data":"x"}`, `{"userId":"user-1"}`, `not json`} {
		w := perform(r, http.MethodPost, "/api/save", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(t, decode(t, w)["error"])
	}
	assert.Zero(t, repo.calls)
}

func TestSave_MethodNotAllowed(t *testing.T) {
	r := setupRouter(memory.NewDocumentRepository(nil))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := perform(r, method, "/api/save", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
}

func TestStoreNotConfigured(t *testing.T) {
	r := setupRouter(repository.NewUnconfigured("REDIS_URL is not set"))

	w := perform(r, http.MethodGet, "/api/load?userId=user-1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Failed to load data", body["error"])
	assert.Contains(t, body["details"], "REDIS_URL is not set")

	w = perform(r, http.MethodPost, "/api/save", `{"userId":"user-1","data":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
