// Package memory holds the process-local stores: the seeded credential set
// and the conversation store. Nothing here survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

var _ ports.ConversationStore = (*ConversationStore)(nil)

// conversationEntry guards one conversation. owner is fixed at creation and
// may be read without holding mu.
type conversationEntry struct {
	owner int

	mu      sync.Mutex
	conv    domain.Conversation
	deleted bool
}

// ConversationStore keeps conversations in insertion order. The index lock
// is held only for map/slice bookkeeping; every read or mutation of a
// conversation's messages happens under that conversation's own lock, so
// distinct conversations never wait on each other.
type ConversationStore struct {
	mu      sync.RWMutex
	entries map[string]*conversationEntry
	order   []string

	now   func() time.Time
	newID func() string
}

// Option customises a ConversationStore.
type Option func(*ConversationStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ConversationStore) { s.now = now }
}

// WithIDGenerator overrides the id source used for conversations and messages.
func WithIDGenerator(gen func() string) Option {
	return func(s *ConversationStore) { s.newID = gen }
}

// NewConversationStore returns an empty store. Ids default to UUIDv7, which
// are time-ordered and stay unique and increasing within a process even when
// many are generated in the same millisecond.
func NewConversationStore(opts ...Option) *ConversationStore {
	s := &ConversationStore{
		entries: make(map[string]*conversationEntry),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListForUser returns snapshots of userID's conversations in creation order.
func (s *ConversationStore) ListForUser(_ context.Context, userID int) ([]domain.Conversation, error) {
	s.mu.RLock()
	owned := make([]*conversationEntry, 0)
	for _, id := range s.order {
		if e := s.entries[id]; e.owner == userID {
			owned = append(owned, e)
		}
	}
	s.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(owned))
	for _, e := range owned {
		e.mu.Lock()
		if !e.deleted {
			out = append(out, e.conv.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}

// GetForUser returns a snapshot of the conversation if userID owns it.
func (s *ConversationStore) GetForUser(_ context.Context, id string, userID int) (*domain.Conversation, error) {
	e, err := s.owned(id, userID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrConversationNotFound
	}
	c := e.conv.Clone()
	return &c, nil
}

// ListMessages returns a copy of the conversation's messages, never nil.
func (s *ConversationStore) ListMessages(ctx context.Context, id string, userID int) ([]domain.Message, error) {
	c, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}

// Create adds an empty conversation owned by userID. A blank title becomes
// domain.DefaultConversationTitle.
func (s *ConversationStore) Create(_ context.Context, userID int, title string) (*domain.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = domain.DefaultConversationTitle
	}
	now := s.now()
	e := &conversationEntry{
		owner: userID,
		conv: domain.Conversation{
			ID:          s.newID(),
			Title:       title,
			OwnerUserID: userID,
			Messages:    []domain.Message{},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	c := e.conv.Clone()

	s.mu.Lock()
	s.entries[c.ID] = e
	s.order = append(s.order, c.ID)
	s.mu.Unlock()

	return &c, nil
}

// AppendUserMessage appends a user-role message to a conversation userID owns.
func (s *ConversationStore) AppendUserMessage(_ context.Context, id string, userID int, content string) (*domain.Message, error) {
	e, err := s.owned(id, userID)
	if err != nil {
		return nil, err
	}
	return s.append(e, domain.Message{Role: domain.MessageRoleUser, Content: content})
}

// AppendAssistantMessage appends msg as an assistant-role message. Id and
// timestamp are assigned here, under the conversation lock, so they stay
// ordered with respect to concurrent appends.
func (s *ConversationStore) AppendAssistantMessage(_ context.Context, id string, msg domain.Message) (*domain.Message, error) {
	s.mu.RLock()
	e := s.entries[id]
	s.mu.RUnlock()
	if e == nil {
		return nil, domain.ErrConversationNotFound
	}
	msg.Role = domain.MessageRoleAssistant
	return s.append(e, msg)
}

// Delete removes the conversation if userID owns it.
func (s *ConversationStore) Delete(_ context.Context, id string, userID int) error {
	s.mu.Lock()
	e := s.entries[id]
	if e == nil || e.owner != userID {
		s.mu.Unlock()
		return domain.ErrConversationNotFound
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	// An append that looked the entry up before removal must not succeed.
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return nil
}

func (s *ConversationStore) owned(id string, userID int) (*conversationEntry, error) {
	s.mu.RLock()
	e := s.entries[id]
	s.mu.RUnlock()
	if e == nil || e.owner != userID {
		return nil, domain.ErrConversationNotFound
	}
	return e, nil
}

func (s *ConversationStore) append(e *conversationEntry, msg domain.Message) (*domain.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, domain.ErrConversationNotFound
	}

	// Timestamps never go backwards within a conversation, even if the wall
	// clock does.
	ts := s.now()
	if ts.Before(e.conv.UpdatedAt) {
		ts = e.conv.UpdatedAt
	}
	msg.ID = s.newID()
	msg.Timestamp = ts

	e.conv.Messages = append(e.conv.Messages, msg)
	e.conv.UpdatedAt = ts
	return &msg, nil
}
