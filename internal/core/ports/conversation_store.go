package ports

import (
	"context"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// ConversationStore owns conversations and their messages. Every lookup that
// takes a userID fails with domain.ErrConversationNotFound both when the
// conversation does not exist and when another user owns it.
type ConversationStore interface {
	ListForUser(ctx context.Context, userID int) ([]domain.Conversation, error)
	GetForUser(ctx context.Context, id string, userID int) (*domain.Conversation, error)
	ListMessages(ctx context.Context, id string, userID int) ([]domain.Message, error)
	Create(ctx context.Context, userID int, title string) (*domain.Conversation, error)
	AppendUserMessage(ctx context.Context, id string, userID int, content string) (*domain.Message, error)
	// AppendAssistantMessage stamps msg with a fresh id and timestamp and appends it.
	AppendAssistantMessage(ctx context.Context, id string, msg domain.Message) (*domain.Message, error)
	Delete(ctx context.Context, id string, userID int) error
}
