package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. Call after LoadProfile.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		s, _ := role.(string)
		if _, ok := allowed[s]; !ok {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole(models.RoleAdmin).
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
