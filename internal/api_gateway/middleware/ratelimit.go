package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether a caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit throttles per owner, falling back to the client IP before the
// owner is known. It must run after OwnerID to key on the owner.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(OwnerIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		if !limiter.Allow(c.Request.Context(), key) {
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}
		c.Next()
	}
}
