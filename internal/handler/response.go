package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewErrorResponse(message, details string) *ErrorResponse {
	return &ErrorResponse{Error: message, Details: details}
}

// RespondError writes err as {error, details} with the status its AppError code maps to.
// Any other error is a 500.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.StatusCode(), NewErrorResponse(appErr.Message, appErr.Details()))
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse("internal server error", err.Error()))
}
