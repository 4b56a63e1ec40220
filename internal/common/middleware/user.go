package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/open-builders/giveaway-rules/internal/common/errors"
)

const (
	// UserIDHeader is set by the upstream auth gateway.
	UserIDHeader = "X-User-ID"
	userIDKey    = "user_id"
)

// RequireUserID rejects requests without a caller identity.
func RequireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			sendErrorResponse(c, errors.New(errors.ErrCodeUnauthorized, "Missing "+UserIDHeader+" header"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFrom returns the caller id set by RequireUserID.
func UserIDFrom(c *gin.Context) string {
	return c.GetString(userIDKey)
}
