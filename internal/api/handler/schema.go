package handler

import (
	"time"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type queryRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// --- Response types ---

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   string    `json:"replyTo,omitempty"`
}

type conversationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Messages  []messageResponse `json:"messages"`
	UserID    int               `json:"userId"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type exchangeResponse struct {
	UserMessage      messageResponse `json:"userMessage"`
	AssistantMessage messageResponse `json:"assistantMessage"`
}

type queryResponse struct {
	Response string `json:"response"`
}

type statusMessageResponse struct {
	Message string `json:"message"`
}

type meResponse struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// --- Mappers ---

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
		ReplyTo:   m.ReplyTo,
	}
}

func toMessageResponses(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toConversationResponse(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  toMessageResponses(c.Messages),
		UserID:    c.OwnerUserID,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func toExchangeResponse(ex *ports.Exchange) exchangeResponse {
	return exchangeResponse{
		UserMessage:      toMessageResponse(ex.UserMessage),
		AssistantMessage: toMessageResponse(ex.AssistantMessage),
	}
}
