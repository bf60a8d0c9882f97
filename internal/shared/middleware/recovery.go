package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"grimoire-backend/internal/shared/response"
)

// Recovery converts handler panics into the standard error envelope. The
// client sees a plain 500; the panic value stays in the log.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Interface("panic", err).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")

				response.InternalServerError(c, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
