package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Recovery turns a handler panic into a 500 envelope. gin's own recovery
// still deals with broken client connections; the stack goes to the
// structured logger instead of stderr.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		attrs := []any{
			"error", recovered,
			"stack", string(debug.Stack()),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"correlation_id", GetCorrelationID(c),
		}
		if owner := GetOwnerID(c); owner != uuid.Nil {
			attrs = append(attrs, "owner_id", owner.String())
		}
		logger.Error("Panic recovered", attrs...)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
	})
}
