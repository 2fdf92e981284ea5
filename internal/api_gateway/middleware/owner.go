package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// OwnerIDHeader carries the authenticated account holder, set by the edge proxy
	OwnerIDHeader = "X-Owner-ID"

	// OwnerIDKey is the key used to store the owner ID in the context
	OwnerIDKey = "owner_id"
)

// OwnerID rejects requests without a valid owner header
func OwnerID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerIDHeader)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing "+OwnerIDHeader+" header")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid "+OwnerIDHeader+" header")
			return
		}

		c.Set(OwnerIDKey, id.String())
		c.Next()
	}
}

// GetOwnerID returns the owner set by OwnerID, or uuid.Nil outside it
func GetOwnerID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(OwnerIDKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}
