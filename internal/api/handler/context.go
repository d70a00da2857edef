package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/api/middleware"
	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// ctxClaims extracts the session claims injected by the Auth middleware.
// Their absence means the route was mounted without Auth.
func ctxClaims(c echo.Context) (domain.SessionClaims, error) {
	claims, ok := c.Get(middleware.ClaimsKey).(domain.SessionClaims)
	if !ok || claims.Username == "" {
		return domain.SessionClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}
