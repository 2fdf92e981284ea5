package middleware

import (
	"github.com/gin-gonic/gin"
)

// abortWithError writes the standard error envelope. Middleware runs before
// the handler package's helpers are reachable, so the envelope is built here.
func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
