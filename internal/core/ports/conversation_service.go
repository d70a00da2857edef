package ports

import (
	"context"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// SendMessageInput is the DTO passed from the transport layer to
// ConversationService.SendMessage.
type SendMessageInput struct {
	ConversationID string
	Content        string
	// IdempotencyKey is optional; when set, a repeated call with the same key
	// replays the first successful exchange.
	IdempotencyKey string
}

// Exchange is a user message together with the assistant reply it produced.
type Exchange struct {
	UserMessage      domain.Message `json:"userMessage"`
	AssistantMessage domain.Message `json:"assistantMessage"`
	// Replayed is true when the exchange came from the idempotency store.
	Replayed bool `json:"-"`
}

// ConversationService defines the use-case operations behind the API.
type ConversationService interface {
	List(ctx context.Context, claims domain.SessionClaims) ([]domain.Conversation, error)
	Get(ctx context.Context, claims domain.SessionClaims, id string) (*domain.Conversation, error)
	Messages(ctx context.Context, claims domain.SessionClaims, id string) ([]domain.Message, error)
	Create(ctx context.Context, claims domain.SessionClaims, title string) (*domain.Conversation, error)
	Delete(ctx context.Context, claims domain.SessionClaims, id string) error
	SendMessage(ctx context.Context, claims domain.SessionClaims, in SendMessageInput) (*Exchange, error)
	Query(ctx context.Context, claims domain.SessionClaims, prompt string) (string, error)
}
