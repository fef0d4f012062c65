package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/pkg/httputil"
)

// Errors is a last-resort collector: any error a handler attached to the
// gin context without writing a response is rendered here.
func Errors(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("unhandled request error")
		httputil.RespondWithError(c, err)
	}
}
