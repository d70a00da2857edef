package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/ports"
)

// QueryHandler answers one-off prompts outside any conversation.
type QueryHandler struct {
	service ports.ConversationService
}

func NewQueryHandler(service ports.ConversationService) *QueryHandler {
	return &QueryHandler{service: service}
}

// Query handles POST /query. Prompts mentioning "sensitive" need the
// view_sensitive permission.
//
// @Summary      Run a direct query
// @Tags         query
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      queryRequest  true  "Prompt"
// @Success      200   {object}  queryResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /query [post]
func (h *QueryHandler) Query(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req queryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	text, err := h.service.Query(c.Request().Context(), claims, req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, queryResponse{Response: text})
}
