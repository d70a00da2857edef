package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// RequirePermission rejects callers whose role lacks perm. It must run after Auth.
func RequirePermission(perm domain.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(ClaimsKey).(domain.SessionClaims)
			if !ok {
				return domain.ErrUnauthorized
			}
			if !claims.HasPermission(perm) {
				return domain.ErrPermissionDenied
			}
			return next(c)
		}
	}
}
