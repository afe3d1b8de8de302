package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dos-platform/tutor-api/internal/service"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/response"
)

// ContextProfileKey is the gin context key storing the authenticated profile id.
const ContextProfileKey = "currentProfile"

// InternalKeyHeader carries the static key trusted service-to-service callers
// present instead of a bearer token.
const InternalKeyHeader = "X-Internal-Api-Key"

// Auth protects routes by requiring a valid bearer token.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		profileID, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextProfileKey, profileID)
		c.Next()
	}
}

// InternalKey protects routes reserved for trusted internal callers.
func InternalKey(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authService.ValidInternalKey(c.GetHeader(InternalKeyHeader)) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ProfileID returns the authenticated profile id set by Auth.
func ProfileID(c *gin.Context) string {
	id, _ := c.Get(ContextProfileKey)
	s, _ := id.(string)
	return s
}
