package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorai/tutorai-backend/internal/auth"
	"github.com/tutorai/tutorai-backend/internal/auth/domain"
	"github.com/tutorai/tutorai-backend/internal/auth/service"
)

// RequireAuth validates the Bearer token and loads user id/role into the
// context for downstream handlers.
func RequireAuth(svc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			c.Abort()
			return
		}

		claims, err := svc.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(auth.CtxUserID, claims.UserID)
		c.Set(auth.CtxUserRole, claims.Role)
		c.Set(auth.CtxSessionID, claims.SessionID)

		c.Next()
	}
}

// RequireAdmin gates a route group on the admin role. Must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.UserRole(c) != domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken pulls the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
