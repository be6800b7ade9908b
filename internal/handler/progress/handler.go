package progress

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medtracker/internal/handler"
	progressService "github.com/jwalitptl/medtracker/internal/service/progress"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type Handler struct {
	service progressService.ProgressServicer
}

func NewHandler(service progressService.ProgressServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/progress", h.Progress)
	r.GET("/reminders", h.Reminders)
}

func (h *Handler) Progress(c *gin.Context) {
	loc, err := location(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	year, err := optionalInt(c, "year")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	month, err := optionalInt(c, "month")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), c.Query("userId"), year, time.Month(month), loc)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Reminders(c *gin.Context) {
	loc, err := location(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	upcoming, err := h.service.Upcoming(c.Request.Context(), c.Query("userId"), loc)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": upcoming})
}

// location reads the IANA zone in ?tz=, defaulting to UTC.
func location(c *gin.Context) (*time.Location, error) {
	tz := c.Query("tz")
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid time zone", err)
	}
	return loc, nil
}

func optionalInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequest("Invalid "+name, err)
	}
	return v, nil
}
