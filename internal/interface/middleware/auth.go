package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/response"
)

// Context keys set by Auth.
const (
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// Identity headers accepted from a trusted gateway.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserType = "X-User-Type"
)

// SessionChecker confirms that a token's session id is still current.
type SessionChecker interface {
	SessionValid(ctx context.Context, userID, sid string) bool
}

// AuthConfig controls how callers are identified.
type AuthConfig struct {
	JWT      *helpers.JWTManager
	Sessions SessionChecker
	// TrustHeaders accepts X-User-Id / X-User-Type as the identity when no
	// token is presented.
	TrustHeaders bool
}

// Auth identifies the caller from the access token (Bearer header or
// cookie) or, if enabled, from gateway headers. It sets userID and userRole
// in the Gin context and rejects anonymous requests with 401.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := accessToken(c); token != "" {
			claims, err := cfg.JWT.ParseAccessToken(token)
			if err != nil {
				response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
				return
			}
			if cfg.Sessions != nil && !cfg.Sessions.SessionValid(c.Request.Context(), claims.UserID, claims.SessionID) {
				response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
				return
			}
			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxRoleKey, claims.Role)
			c.Next()
			return
		}

		if cfg.TrustHeaders {
			if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
				role, ok := entity.ParseRole(c.GetHeader(HeaderUserType))
				if !ok {
					response.Error[any](c, http.StatusUnauthorized, "invalid user type", nil)
					return
				}
				c.Set(CtxUserIDKey, uid)
				c.Set(CtxRoleKey, role.String())
				c.Next()
				return
			}
		}

		response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
	}
}

// RequireRole rejects callers whose role is not role with 403. It must run
// after Auth.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRoleKey) != role.String() {
			response.Error[any](c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}

// accessToken reads the token from "Authorization: Bearer" first, then the
// access cookie.
func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if tok, err := c.Cookie(helpers.AccessCookie); err == nil {
		return tok
	}
	return ""
}
