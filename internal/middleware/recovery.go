package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Recovery turns a handler panic into a 500 JSON body. The panic is logged on the
// request-scoped logger set by RequestID, or the global logger when RequestID did not run.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger := zerolog.Ctx(c.Request.Context())
			if logger.GetLevel() == zerolog.Disabled {
				logger = &log.Logger
			}
			logger.Error().
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Msg("handler panicked")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:     "Internal server error",
				RequestID: c.GetString(ContextRequestID),
			})
		}()
		c.Next()
	}
}
