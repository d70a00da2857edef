package domain

import "time"

// MessageRole identifies who authored a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New Conversation"

// Message is an immutable entry in a conversation.
type Message struct {
	ID        string
	Role      MessageRole
	Content   string
	Timestamp time.Time
	// ReplyTo is the id of the user message an assistant message answers.
	ReplyTo string
}

// Conversation is a titled, append-only message sequence owned by one user.
type Conversation struct {
	ID          string
	Title       string
	OwnerUserID int
	Messages    []Message
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy that shares no message storage with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
