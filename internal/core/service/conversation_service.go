package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/pkg/metrics"
)

// DefaultIdempotencyTTL is how long a completed exchange can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

type conversationService struct {
	store     ports.ConversationStore
	completer ports.Completer
	idem      ports.IdempotencyStore
	idemTTL   time.Duration
	log       zerolog.Logger
}

// NewConversationService returns a ConversationService implementation. A nil
// idem disables replay of idempotent sends.
func NewConversationService(
	store ports.ConversationStore,
	completer ports.Completer,
	idem ports.IdempotencyStore,
	idemTTL time.Duration,
	log zerolog.Logger,
) ports.ConversationService {
	if idem == nil {
		idem = noopIdempotency{}
	}
	if idemTTL <= 0 {
		idemTTL = DefaultIdempotencyTTL
	}
	return &conversationService{
		store:     store,
		completer: completer,
		idem:      idem,
		idemTTL:   idemTTL,
		log:       log,
	}
}

func (s *conversationService) List(ctx context.Context, claims domain.SessionClaims) ([]domain.Conversation, error) {
	return s.store.ListForUser(ctx, claims.UserID)
}

func (s *conversationService) Get(ctx context.Context, claims domain.SessionClaims, id string) (*domain.Conversation, error) {
	return s.store.GetForUser(ctx, id, claims.UserID)
}

func (s *conversationService) Messages(ctx context.Context, claims domain.SessionClaims, id string) ([]domain.Message, error) {
	return s.store.ListMessages(ctx, id, claims.UserID)
}

func (s *conversationService) Create(ctx context.Context, claims domain.SessionClaims, title string) (*domain.Conversation, error) {
	c, err := s.store.Create(ctx, claims.UserID, title)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	metrics.ConversationsCreatedTotal.Inc()
	s.log.Debug().Str("conversation_id", c.ID).Int("user_id", claims.UserID).Msg("conversation created")
	return c, nil
}

func (s *conversationService) Delete(ctx context.Context, claims domain.SessionClaims, id string) error {
	if err := s.store.Delete(ctx, id, claims.UserID); err != nil {
		return err
	}
	s.log.Debug().Str("conversation_id", id).Int("user_id", claims.UserID).Msg("conversation deleted")
	return nil
}

// SendMessage appends the caller's message, asks the completion service for
// a reply and appends that too. When the remote call fails the user message
// stays in the conversation and the error wraps domain.ErrRemote.
func (s *conversationService) SendMessage(ctx context.Context, claims domain.SessionClaims, in ports.SendMessageInput) (*ports.Exchange, error) {
	log := s.log.With().Str("conversation_id", in.ConversationID).Int("user_id", claims.UserID).Logger()

	var idemKey string
	if in.IdempotencyKey != "" {
		// A replay must not outlive the conversation or leak across owners.
		if _, err := s.store.GetForUser(ctx, in.ConversationID, claims.UserID); err != nil {
			return nil, err
		}
		idemKey = idempotencyKey(claims.UserID, in.ConversationID, in.IdempotencyKey)
		if ex, ok := s.replay(ctx, idemKey, log); ok {
			return ex, nil
		}
	}

	userMsg, err := s.store.AppendUserMessage(ctx, in.ConversationID, claims.UserID, in.Content)
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppendedTotal.WithLabelValues(string(domain.MessageRoleUser)).Inc()

	// The reply is still wanted if the client goes away mid-call.
	remoteCtx := context.WithoutCancel(ctx)

	text, err := s.completer.Complete(remoteCtx, in.Content)
	if err != nil {
		if !errors.Is(err, domain.ErrRemote) {
			err = fmt.Errorf("%w: %w", domain.ErrRemote, err)
		}
		log.Error().Err(err).Str("message_id", userMsg.ID).Msg("completion failed, user message kept")
		return nil, err
	}

	assistantMsg, err := s.store.AppendAssistantMessage(remoteCtx, in.ConversationID, domain.Message{
		Content: text,
		ReplyTo: userMsg.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	metrics.MessagesAppendedTotal.WithLabelValues(string(domain.MessageRoleAssistant)).Inc()

	ex := &ports.Exchange{UserMessage: *userMsg, AssistantMessage: *assistantMsg}
	if idemKey != "" {
		s.remember(remoteCtx, idemKey, ex, log)
	}
	return ex, nil
}

// Query sends prompt straight to the completion service, without a
// conversation, once the caller's role allows the prompt's data class.
func (s *conversationService) Query(ctx context.Context, claims domain.SessionClaims, prompt string) (string, error) {
	perm := domain.ClassifyQuery(prompt)
	if !claims.HasPermission(perm) {
		metrics.QueriesTotal.WithLabelValues(string(perm), "forbidden").Inc()
		s.log.Info().Int("user_id", claims.UserID).Str("role", string(claims.Role)).Str("permission", string(perm)).Msg("query denied")
		return "", domain.ErrForbidden
	}

	text, err := s.completer.Complete(context.WithoutCancel(ctx), prompt)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(perm), "error").Inc()
		if !errors.Is(err, domain.ErrRemote) {
			err = fmt.Errorf("%w: %w", domain.ErrRemote, err)
		}
		s.log.Error().Err(err).Int("user_id", claims.UserID).Msg("query failed")
		return "", err
	}
	metrics.QueriesTotal.WithLabelValues(string(perm), "ok").Inc()
	return text, nil
}

func (s *conversationService) replay(ctx context.Context, key string, log zerolog.Logger) (*ports.Exchange, bool) {
	payload, found, err := s.idem.Lookup(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency lookup failed, sending anyway")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var ex ports.Exchange
	if err := json.Unmarshal(payload, &ex); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable idempotency record")
		return nil, false
	}
	ex.Replayed = true
	metrics.IdempotentReplaysTotal.Inc()
	log.Debug().Msg("replayed idempotent send")
	return &ex, true
}

func (s *conversationService) remember(ctx context.Context, key string, ex *ports.Exchange, log zerolog.Logger) {
	payload, err := json.Marshal(ex)
	if err != nil {
		log.Warn().Err(err).Msg("encode idempotency record")
		return
	}
	if err := s.idem.Save(ctx, key, payload, s.idemTTL); err != nil {
		log.Warn().Err(err).Msg("failed to store idempotency record")
	}
}

func idempotencyKey(userID int, conversationID, key string) string {
	return "idem:" + strconv.Itoa(userID) + ":" + conversationID + ":" + key
}

type noopIdempotency struct{}

func (noopIdempotency) Lookup(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (noopIdempotency) Save(context.Context, string, []byte, time.Duration) error { return nil }
