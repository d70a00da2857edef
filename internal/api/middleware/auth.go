package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

// ClaimsKey is the echo.Context key holding the caller's domain.SessionClaims.
const ClaimsKey = "claims"

// Auth validates the bearer token and injects the session claims into context.
// A missing header, a non-Bearer scheme or an empty token fail with
// domain.ErrUnauthorized; a token that does not verify fails with
// domain.ErrInvalidToken.
func Auth(authn ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthorized
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return domain.ErrUnauthorized
			}

			claims, err := authn.Authenticate(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrInvalidToken) {
					return err
				}
				return fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}
