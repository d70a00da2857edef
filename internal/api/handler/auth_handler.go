package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/ports"
)

type AuthHandler struct {
	authService ports.Authenticator
}

func NewAuthHandler(authService ports.Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and returns a session token valid for one hour.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}
