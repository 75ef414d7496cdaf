package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID    = "user_id"
	CtxUserRole  = "user_role"
	CtxSessionID = "session_id"
)

// UserID extracts the authenticated user's id from the Gin context.
// Set by middleware.RequireAuth.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

func UserRole(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserRole))
}

func SessionID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxSessionID))
}
