package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has one of the given roles
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role.(string) == string(r) {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

func ProviderOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleProvider)
}

func CustomerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleCustomer)
}
