package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/response"
)

const RoleTeacher = "teacher"

// RequireRole ensures that the authenticated user has one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Role not found in token")
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
	}
}

func TeacherOnly() gin.HandlerFunc {
	return RequireRole(RoleTeacher)
}
