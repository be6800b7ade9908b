package document

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medtracker/internal/handler"
	documentService "github.com/jwalitptl/medtracker/internal/service/document"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type Handler struct {
	service documentService.DocumentServicer
}

func NewHandler(service documentService.DocumentServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/load", h.Load)
	r.Any("/save", h.Save)
}

type saveRequest struct {
	UserID string `json:"userId"`
	Data   string `json:"data"`
}

// Load returns {"data": <string|null>}.
func (h *Handler) Load(c *gin.Context) {
	data, err := h.service.Load(c.Request.Context(), c.Query("userId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) Save(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
		return
	}

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("Invalid request body", err))
		return
	}

	if err := h.service.Save(c.Request.Context(), req.UserID, req.Data); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
