package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/pkg/response"
)

// JWT returns a middleware that validates the access token and sets user
// claims in context. The token comes from the Authorization header, or from
// the access_token cookie for browser clients.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie(auth.CookieName)
		}
		if token == "" {
			response.Unauthorized(c, "missing access token")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(auth.ContextUserID, claims.UserID)
		c.Set(auth.ContextUserRole, claims.Role)
		c.Set(auth.ContextUsername, claims.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
