package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skillswap/internal/pkg/jwt"
	"skillswap/internal/pkg/reqctx"
	"skillswap/internal/pkg/response"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates the bearer token and stores the caller both in the gin
// context and in the request context, where outbound calls read it from.
func JWTAuth(jwtSvc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		authenticate(c, jwtSvc, strings.TrimSpace(parts[1]))
	}
}

// QueryTokenAuth is JWTAuth for websocket upgrades, where browsers cannot set
// headers. The token comes from the "token" query parameter.
func QueryTokenAuth(jwtSvc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "token query parameter is required")
			return
		}
		authenticate(c, jwtSvc, token)
	}
}

func authenticate(c *gin.Context, jwtSvc *jwt.Service, token string) {
	claims, err := jwtSvc.ValidateToken(token)
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, claims.Role)
	ctx := reqctx.WithPrincipal(c.Request.Context(), reqctx.Principal{
		UserID: claims.UserID,
		Role:   claims.Role,
		Token:  token,
	})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
