package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

// AuthCookieName carries the access token for browser sessions.
const AuthCookieName = "auth_token"

// authViaCookie marks requests authenticated by the session cookie, which need CSRF checks.
const authViaCookie = "auth_via_cookie"

// AuthMiddleware resolves the access token into a principal. The role is always
// loaded from the database, never trusted from the token.
func AuthMiddleware(authUC domain.AuthUsecase, audit domain.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Try to get token from Header
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		} else if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
			// 2. Try to get token from Cookie
			tokenString = cookie
			c.Set(authViaCookie, true)
		}

		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required")
			return
		}

		principal, err := authUC.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			code := apperror.CodeOf(err)
			msg := "Invalid token"
			if appErr, ok := apperror.As(err); ok {
				msg = appErr.Message
			}
			if code == http.StatusInternalServerError {
				logger.Error(c.Request.Context(), "authentication failed", zap.Error(err))
				msg = "An unexpected error occurred. Please try again later."
			}
			if code == http.StatusUnauthorized && audit != nil {
				audit.Log(c.Request.Context(), domain.AuditEvent{
					Type:        domain.AuditUnauthorized,
					SubjectType: "ip",
					IP:          c.ClientIP(),
					UserAgent:   c.Request.UserAgent(),
					RequestID:   c.GetString(string(domain.KeyRequestID)),
					Details:     map[string]any{"path": c.FullPath()},
				})
			}
			response.Abort(c, code, msg)
			return
		}

		ctx := domain.WithPrincipal(c.Request.Context(), principal)
		ctx = logger.WithFields(ctx, zap.Stringer("user_id", principal.UserID), zap.String("role", string(principal.Role)))
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(domain.KeyPrincipal), principal)

		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := domain.PrincipalFrom(c.Request.Context())
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		if !p.HasRole(roles...) {
			response.Abort(c, http.StatusForbidden, "You do not have permission to perform this action")
			return
		}
		c.Next()
	}
}
