package extraction

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medtracker/internal/handler"
	extractionService "github.com/jwalitptl/medtracker/internal/service/extraction"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

const DefaultMaxUploadSize = 10 << 20

type Handler struct {
	service       extractionService.ExtractionServicer
	maxUploadSize int64
}

func NewHandler(service extractionService.ExtractionServicer, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/extract", h.Extract)
}

// Extract reads the multipart "file" field, sniffs its type and returns
// {"medications": [...]}. An empty list means the model found nothing.
func (h *Handler) Extract(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("File is required", err))
		return
	}
	if fh.Size > h.maxUploadSize {
		handler.RespondError(c, tooLarge(h.maxUploadSize))
		return
	}

	f, err := fh.Open()
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("Could not read the uploaded file", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("Could not read the uploaded file", err))
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		handler.RespondError(c, tooLarge(h.maxUploadSize))
		return
	}

	mtype := mimetype.Detect(data)
	meds, err := h.service.Extract(c.Request.Context(), data, mtype.String())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": meds})
}

func tooLarge(limit int64) error {
	return apperrors.TooLarge(fmt.Sprintf("File exceeds the %d MB limit", limit>>20))
}
