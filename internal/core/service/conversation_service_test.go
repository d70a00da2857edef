package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/infrastructure/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	// gotCtxErr records ctx.Err() as seen by the last Complete call.
	gotCtxErr error
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.gotCtxErr = ctx.Err()
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type stubIdempotency struct {
	records   map[string][]byte
	ttls      map[string]time.Duration
	lookupErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{records: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *stubIdempotency) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	if s.lookupErr != nil {
		return nil, false, s.lookupErr
	}
	p, ok := s.records[key]
	return p, ok, nil
}

func (s *stubIdempotency) Save(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.records[key] = payload
	s.ttls[key] = ttl
	return nil
}

var (
	adminClaims   = domain.SessionClaims{UserID: 1, Username: "admin", Role: domain.RoleAdmin}
	managerClaims = domain.SessionClaims{UserID: 2, Username: "manager", Role: domain.RoleManager}
	userClaims    = domain.SessionClaims{UserID: 3, Username: "user", Role: domain.RoleUser}
)

func newTestConversationService(c ports.Completer, idem ports.IdempotencyStore) (ports.ConversationService, *memory.ConversationStore) {
	store := memory.NewConversationStore()
	return NewConversationService(store, c, idem, time.Hour, discardLogger), store
}

// ---------------------------------------------------------------------------
// Conversation lifecycle
// ---------------------------------------------------------------------------

func TestConversationService_CreateAndList(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{}, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, userClaims, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.Title != domain.DefaultConversationTitle {
		t.Fatalf("expected default title, got %q", first.Title)
	}
	if _, err := svc.Create(ctx, userClaims, "Second"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(ctx, managerClaims, "Not yours"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := svc.List(ctx, userClaims)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].Title != "Second" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestConversationService_OtherUserSeesNotFound(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{reply: "hi"}, nil)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "mine")

	if _, err := svc.Get(ctx, managerClaims, c.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("Get: expected ErrConversationNotFound, got %v", err)
	}
	if _, err := svc.Messages(ctx, adminClaims, c.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("Messages: expected ErrConversationNotFound, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, adminClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "x"}); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("SendMessage: expected ErrConversationNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, managerClaims, c.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("Delete: expected ErrConversationNotFound, got %v", err)
	}
	// Still intact for the owner.
	if _, err := svc.Get(ctx, userClaims, c.ID); err != nil {
		t.Fatalf("owner lost access: %v", err)
	}
}

func TestConversationService_DeleteTwice(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{}, nil)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "bye")
	if err := svc.Delete(ctx, userClaims, c.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := svc.Delete(ctx, userClaims, c.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("second delete: expected ErrConversationNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// SendMessage
// ---------------------------------------------------------------------------

func TestConversationService_SendMessage_AppendsPair(t *testing.T) {
	completer := &stubCompleter{reply: "Hello back"}
	svc, _ := newTestConversationService(completer, nil)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	ex, err := svc.SendMessage(ctx, userClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "Hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if ex.UserMessage.Role != domain.MessageRoleUser || ex.UserMessage.Content != "Hello" {
		t.Fatalf("unexpected user message: %+v", ex.UserMessage)
	}
	if ex.AssistantMessage.Role != domain.MessageRoleAssistant || ex.AssistantMessage.Content != "Hello back" {
		t.Fatalf("unexpected assistant message: %+v", ex.AssistantMessage)
	}
	if ex.AssistantMessage.ReplyTo != ex.UserMessage.ID {
		t.Fatalf("assistant message should reply to %q, got %q", ex.UserMessage.ID, ex.AssistantMessage.ReplyTo)
	}
	if ex.AssistantMessage.ID == ex.UserMessage.ID {
		t.Fatal("message ids must differ")
	}
	if completer.prompts[0] != "Hello" {
		t.Fatalf("remote service must receive the raw content, got %q", completer.prompts[0])
	}

	msgs, _ := svc.Messages(ctx, userClaims, c.ID)
	if len(msgs) != 2 || msgs[0].ID != ex.UserMessage.ID || msgs[1].ID != ex.AssistantMessage.ID {
		t.Fatalf("unexpected stored messages: %+v", msgs)
	}

	got, _ := svc.Get(ctx, userClaims, c.ID)
	if !got.UpdatedAt.Equal(ex.AssistantMessage.Timestamp) {
		t.Fatalf("updatedAt %v should equal last message timestamp %v", got.UpdatedAt, ex.AssistantMessage.Timestamp)
	}
}

func TestConversationService_SendMessage_RemoteFailureKeepsUserMessage(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream 500")}
	svc, _ := newTestConversationService(completer, nil)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	_, err := svc.SendMessage(ctx, userClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "Are you there?"})
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}

	msgs, _ := svc.Messages(ctx, userClaims, c.ID)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly the user message to remain, got %d messages", len(msgs))
	}
	if msgs[0].Role != domain.MessageRoleUser || msgs[0].Content != "Are you there?" {
		t.Fatalf("unexpected surviving message: %+v", msgs[0])
	}

	got, _ := svc.Get(ctx, userClaims, c.ID)
	if !got.UpdatedAt.Equal(msgs[0].Timestamp) {
		t.Fatalf("updatedAt should reflect the user message append")
	}
}

func TestConversationService_SendMessage_SurvivesClientCancel(t *testing.T) {
	completer := &stubCompleter{reply: "late reply"}
	svc, _ := newTestConversationService(completer, nil)

	c, _ := svc.Create(context.Background(), userClaims, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.SendMessage(ctx, userClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "hi"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if completer.gotCtxErr != nil {
		t.Fatalf("remote call must not see the client's cancellation, got %v", completer.gotCtxErr)
	}
}

func TestConversationService_SendMessage_ConcurrentSends(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	svc, _ := newTestConversationService(completer, nil)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SendMessage(ctx, userClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "ping"}); err != nil {
				t.Errorf("send failed: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, _ := svc.Messages(ctx, userClaims, c.ID)
	if len(msgs) != 2*n {
		t.Fatalf("expected %d messages, got %d", 2*n, len(msgs))
	}
	seen := make(map[string]bool, len(msgs))
	for i, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate message id %q", m.ID)
		}
		seen[m.ID] = true
		if i > 0 && m.Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("timestamps went backwards at %d", i)
		}
	}
}

// ---------------------------------------------------------------------------
// Idempotency
// ---------------------------------------------------------------------------

func TestConversationService_SendMessage_IdempotentReplay(t *testing.T) {
	completer := &stubCompleter{reply: "only once"}
	idem := newStubIdempotency()
	svc, _ := newTestConversationService(completer, idem)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	in := ports.SendMessageInput{ConversationID: c.ID, Content: "hello", IdempotencyKey: "k-1"}

	first, err := svc.SendMessage(ctx, userClaims, in)
	if err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if first.Replayed {
		t.Fatal("first send must not be a replay")
	}

	second, err := svc.SendMessage(ctx, userClaims, in)
	if err != nil {
		t.Fatalf("replayed send failed: %v", err)
	}
	if !second.Replayed {
		t.Fatal("second send should be a replay")
	}
	if second.UserMessage.ID != first.UserMessage.ID || second.AssistantMessage.ID != first.AssistantMessage.ID {
		t.Fatalf("replay returned different messages: %+v vs %+v", second, first)
	}
	if completer.calls() != 1 {
		t.Fatalf("remote service called %d times, want 1", completer.calls())
	}

	msgs, _ := svc.Messages(ctx, userClaims, c.ID)
	if len(msgs) != 2 {
		t.Fatalf("replay must not append, got %d messages", len(msgs))
	}

	wantKey := "idem:3:" + c.ID + ":k-1"
	if _, ok := idem.records[wantKey]; !ok {
		t.Fatalf("expected record under %q, have %v", wantKey, idem.records)
	}
	if idem.ttls[wantKey] != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", idem.ttls[wantKey])
	}
}

func TestConversationService_SendMessage_FailedSendIsNotRemembered(t *testing.T) {
	completer := &stubCompleter{err: domain.ErrRemote}
	idem := newStubIdempotency()
	svc, _ := newTestConversationService(completer, idem)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	in := ports.SendMessageInput{ConversationID: c.ID, Content: "hello", IdempotencyKey: "k-2"}

	if _, err := svc.SendMessage(ctx, userClaims, in); !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	if len(idem.records) != 0 {
		t.Fatal("failed exchanges must not be stored")
	}
}

func TestConversationService_SendMessage_ReplayAfterDeleteIsNotFound(t *testing.T) {
	idem := newStubIdempotency()
	svc, _ := newTestConversationService(&stubCompleter{reply: "r"}, idem)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	in := ports.SendMessageInput{ConversationID: c.ID, Content: "hello", IdempotencyKey: "k-3"}
	if _, err := svc.SendMessage(ctx, userClaims, in); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	_ = svc.Delete(ctx, userClaims, c.ID)

	if _, err := svc.SendMessage(ctx, userClaims, in); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationService_SendMessage_LookupErrorSendsAnyway(t *testing.T) {
	completer := &stubCompleter{reply: "r"}
	idem := newStubIdempotency()
	idem.lookupErr = errors.New("redis down")
	svc, _ := newTestConversationService(completer, idem)
	ctx := context.Background()

	c, _ := svc.Create(ctx, userClaims, "")
	if _, err := svc.SendMessage(ctx, userClaims, ports.SendMessageInput{ConversationID: c.ID, Content: "x", IdempotencyKey: "k"}); err != nil {
		t.Fatalf("send should proceed when lookup fails: %v", err)
	}
	if completer.calls() != 1 {
		t.Fatalf("expected one remote call, got %d", completer.calls())
	}
}

// ---------------------------------------------------------------------------
// Query
// ---------------------------------------------------------------------------

func TestConversationService_Query_SensitiveRequiresPermission(t *testing.T) {
	completer := &stubCompleter{reply: "classified"}
	svc, _ := newTestConversationService(completer, nil)
	ctx := context.Background()

	if _, err := svc.Query(ctx, userClaims, "show sensitive data"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("user: expected ErrForbidden, got %v", err)
	}
	if completer.calls() != 0 {
		t.Fatal("forbidden query must not reach the remote service")
	}

	for _, claims := range []domain.SessionClaims{managerClaims, adminClaims} {
		got, err := svc.Query(ctx, claims, "show sensitive data")
		if err != nil {
			t.Fatalf("%s: unexpected error %v", claims.Role, err)
		}
		if got != "classified" {
			t.Fatalf("%s: unexpected response %q", claims.Role, got)
		}
	}
}

func TestConversationService_Query_BasicAllowedForEveryRole(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{reply: "fine"}, nil)

	for _, claims := range []domain.SessionClaims{userClaims, managerClaims, adminClaims} {
		if _, err := svc.Query(context.Background(), claims, "What is the weather?"); err != nil {
			t.Fatalf("%s: basic query rejected: %v", claims.Role, err)
		}
	}
}

func TestConversationService_Query_ClassificationIsCaseSensitive(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{reply: "ok"}, nil)

	if _, err := svc.Query(context.Background(), userClaims, "SENSITIVE stuff"); err != nil {
		t.Fatalf("upper-case keyword should classify as basic: %v", err)
	}
}

func TestConversationService_Query_RemoteFailure(t *testing.T) {
	svc, _ := newTestConversationService(&stubCompleter{err: errors.New("boom")}, nil)

	_, err := svc.Query(context.Background(), adminClaims, "anything")
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}
