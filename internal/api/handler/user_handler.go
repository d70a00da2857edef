package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

type UserHandler struct {
	users ports.CredentialStore
}

func NewUserHandler(users ports.CredentialStore) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /api/me.
//
// @Summary      Describe the current session
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	perms := domain.PermissionsForRole(claims.Role)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}

	return c.JSON(http.StatusOK, meResponse{
		ID:          claims.UserID,
		Username:    claims.Username,
		Role:        string(claims.Role),
		Permissions: names,
		ExpiresAt:   claims.ExpiresAt.UTC(),
	})
}

// List handles GET /api/users. Requires manage_users.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Username: u.Username, Role: string(u.Role)})
	}
	return c.JSON(http.StatusOK, out)
}
