package extraction

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/model"
	extractionService "github.com/jwalitptl/medtracker/internal/service/extraction"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeExtractor struct {
	meds     []model.ParsedMedication
	err      error
	mimeType string
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, mimeType string) ([]model.ParsedMedication, error) {
	f.mimeType = mimeType
	return f.meds, f.err
}

func setupRouter(ex *fakeExtractor, limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := extractionService.NewService(ex, zerolog.Nop())
	NewHandler(svc, limit).RegisterRoutes(r.Group("/api"))
	return r
}

func upload(t *testing.T, r http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "prescription.bin")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtract_Image(t *testing.T) {
	ex := &fakeExtractor{meds: []model.ParsedMedication{{Name: "Amoxicillin", Dosage: "500mg"}}}
	r := setupRouter(ex, 0)

	w := upload(t, r, "file", pngHeader)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", ex.mimeType)
	assert.Contains(t, w.Body.String(), `"name":"Amoxicillin"`)
}

func TestExtract_NothingFound(t *testing.T) {
	r := setupRouter(&fakeExtractor{}, 0)

	w := upload(t, r, "file", pngHeader)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"medications":[]}`, w.Body.String())
}

func TestExtract_Rejections(t *testing.T) {
	r := setupRouter(&fakeExtractor{}, 0)

	w := upload(t, r, "document", pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "file", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtract_TooLarge(t *testing.T) {
	r := setupRouter(&fakeExtractor{}, 16)

	w := upload(t, r, "file", append(pngHeader, make([]byte, 64)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtract_UpstreamFailure(t *testing.T) {
	r := setupRouter(&fakeExtractor{err: extractionService.ErrMalformedResponse}, 0)

	w := upload(t, r, "file", pngHeader)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to analyze the prescription")
}
