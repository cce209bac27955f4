package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/jwt"
	"tapbook/internal/pkg/response"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth authenticates the bearer token from the Authorization header. Browsers cannot
// set headers on websocket upgrades, so a "token" query parameter is accepted as well.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			token = bearerToken(header)
			if token == "" {
				response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
				c.Abort()
				return
			}
		} else {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authentication required")
			c.Abort()
			return
		}

		claims, err := j.ValidateToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserID returns the authenticated user id, 0 when the request is anonymous.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func Role(c *gin.Context) domain.UserRole {
	return domain.UserRole(c.GetString(ctxRole))
}
