package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/core/ports"
)

// IdempotencyKeyHeader lets a client retry a message send without a second reply.
const IdempotencyKeyHeader = "Idempotency-Key"

// ConversationHandler handles the caller's conversations and their messages.
type ConversationHandler struct {
	service ports.ConversationService
}

func NewConversationHandler(service ports.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// List handles GET /api/conversations.
//
// @Summary      List the caller's conversations
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   conversationResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/conversations [get]
func (h *ConversationHandler) List(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	convs, err := h.service.List(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	out := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResponse(conv))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/conversations/:id.
//
// @Summary      Get a conversation
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  conversationResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/conversations/{id} [get]
func (h *ConversationHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	conv, err := h.service.Get(c.Request().Context(), claims, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConversationResponse(*conv))
}

// Messages handles GET /api/conversations/:id/messages.
//
// @Summary      List a conversation's messages
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {array}   messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	msgs, err := h.service.Messages(c.Request().Context(), claims, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMessageResponses(msgs))
}

// Create handles POST /api/conversations.
//
// @Summary      Start a conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createConversationRequest  false  "Optional title"
// @Success      201   {object}  conversationResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/conversations [post]
func (h *ConversationHandler) Create(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	conv, err := h.service.Create(c.Request().Context(), claims, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toConversationResponse(*conv))
}

// SendMessage handles POST /api/conversations/:id/messages.
//
// @Summary      Send a message and receive the assistant's reply
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string              true   "Conversation id"
// @Param        Idempotency-Key  header    string              false  "Replays the first reply for a repeated key"
// @Param        body             body      sendMessageRequest  true   "Message content"
// @Success      200              {object}  exchangeResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /api/conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ex, err := h.service.SendMessage(c.Request().Context(), claims, ports.SendMessageInput{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		IdempotencyKey: c.Request().Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		return err
	}

	if ex.Replayed {
		c.Response().Header().Set("Idempotent-Replayed", "true")
	}
	return c.JSON(http.StatusOK, toExchangeResponse(ex))
}

// Delete handles DELETE /api/conversations/:id.
//
// @Summary      Delete a conversation
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Conversation id"
// @Success      200  {object}  statusMessageResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), claims, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusMessageResponse{Message: "Conversation deleted"})
}
