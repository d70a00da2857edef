package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string `json:"message"`
}

// domainErrors maps known domain errors to HTTP codes and client messages.
// Order matters: the specific credential errors wrap ErrInvalidCredentials.
var domainErrors = []struct {
	err  error
	code int
	msg  string
}{
	{domain.ErrUnknownUser, http.StatusUnauthorized, "Invalid credentials. Invalid User."},
	{domain.ErrWrongPassword, http.StatusUnauthorized, "Invalid credentials. Invalid Password."},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials."},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Access denied"},
	{domain.ErrInvalidToken, http.StatusForbidden, "Invalid token"},
	{domain.ErrForbidden, http.StatusForbidden, "You do not have permission to make this query"},
	{domain.ErrPermissionDenied, http.StatusForbidden, "Permission denied"},
	{domain.ErrConversationNotFound, http.StatusNotFound, "Conversation not found"},
	{domain.ErrRemote, http.StatusInternalServerError, "Error processing your query"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and client messages.
//   - Logs unexpected and remote errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "<text>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, validation, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			if de.code >= http.StatusInternalServerError {
				log.Error().
					Err(err).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Msg("request failed")
			}
			return de.code, de.msg
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Internal server error"
}

// statusFor reports the status code err will be rendered with, for
// middleware that observes the error before the error handler runs.
func statusFor(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.code
		}
	}
	return http.StatusInternalServerError
}
