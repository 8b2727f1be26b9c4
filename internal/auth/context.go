package auth

import "github.com/gin-gonic/gin"

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUsername is the key for username in gin context.
	ContextUsername = "username"

	// CookieName is the access token cookie set at login.
	CookieName = "access_token"
)

// UserID returns the authenticated user's ID from context.
func UserID(c *gin.Context) int64 {
	id, _ := c.Get(ContextUserID)
	v, _ := id.(int64)
	return v
}

// UserRole returns the authenticated user's role from context.
func UserRole(c *gin.Context) string {
	role, _ := c.Get(ContextUserRole)
	v, _ := role.(string)
	return v
}
