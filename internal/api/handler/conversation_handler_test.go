package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/llmgate/chat-gateway/internal/api/middleware"
	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

// stubConversationService records the last call and returns canned results.
type stubConversationService struct {
	conv     *domain.Conversation
	convs    []domain.Conversation
	msgs     []domain.Message
	exchange *ports.Exchange
	reply    string
	err      error

	lastClaims domain.SessionClaims
	lastID     string
	lastTitle  string
	lastSend   ports.SendMessageInput
	lastPrompt string
}

func (s *stubConversationService) List(_ context.Context, claims domain.SessionClaims) ([]domain.Conversation, error) {
	s.lastClaims = claims
	return s.convs, s.err
}

func (s *stubConversationService) Get(_ context.Context, claims domain.SessionClaims, id string) (*domain.Conversation, error) {
	s.lastClaims, s.lastID = claims, id
	return s.conv, s.err
}

func (s *stubConversationService) Messages(_ context.Context, claims domain.SessionClaims, id string) ([]domain.Message, error) {
	s.lastClaims, s.lastID = claims, id
	return s.msgs, s.err
}

func (s *stubConversationService) Create(_ context.Context, claims domain.SessionClaims, title string) (*domain.Conversation, error) {
	s.lastClaims, s.lastTitle = claims, title
	return s.conv, s.err
}

func (s *stubConversationService) Delete(_ context.Context, claims domain.SessionClaims, id string) error {
	s.lastClaims, s.lastID = claims, id
	return s.err
}

func (s *stubConversationService) SendMessage(_ context.Context, claims domain.SessionClaims, in ports.SendMessageInput) (*ports.Exchange, error) {
	s.lastClaims, s.lastSend = claims, in
	return s.exchange, s.err
}

func (s *stubConversationService) Query(_ context.Context, claims domain.SessionClaims, prompt string) (string, error) {
	s.lastClaims, s.lastPrompt = claims, prompt
	return s.reply, s.err
}

var (
	testUser = domain.SessionClaims{UserID: 3, Username: "user", Role: domain.RoleUser}
	testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(middleware.ClaimsKey, testUser)
	return c
}

func sampleConversation() *domain.Conversation {
	return &domain.Conversation{
		ID:          "conv-1",
		Title:       "Hello",
		OwnerUserID: 3,
		Messages: []domain.Message{
			{ID: "m-1", Role: domain.MessageRoleUser, Content: "hi", Timestamp: testTime},
			{ID: "m-2", Role: domain.MessageRoleAssistant, Content: "hello", Timestamp: testTime, ReplyTo: "m-1"},
		},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func TestConversationHandler_List_EmptyIsArray(t *testing.T) {
	e := newTestEcho()
	h := NewConversationHandler(&stubConversationService{})

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/api/conversations", nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", got)
	}
}

func TestConversationHandler_Get_WireFormat(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{conv: sampleConversation()}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.lastID != "conv-1" || svc.lastClaims.UserID != 3 {
		t.Fatalf("service got id=%q claims=%+v", svc.lastID, svc.lastClaims)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, k := range []string{"id", "title", "messages", "userId", "createdAt", "updatedAt"} {
		if _, ok := resp[k]; !ok {
			t.Fatalf("response missing %q: %v", k, resp)
		}
	}
	if resp["userId"].(float64) != 3 {
		t.Fatalf("unexpected userId: %v", resp["userId"])
	}
	msgs := resp["messages"].([]any)
	first := msgs[0].(map[string]any)
	if _, ok := first["replyTo"]; ok {
		t.Fatal("user messages must not carry replyTo")
	}
	second := msgs[1].(map[string]any)
	if second["replyTo"] != "m-1" || second["role"] != "assistant" {
		t.Fatalf("unexpected assistant message: %v", second)
	}
	if first["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp format: %v", first["timestamp"])
	}
}

func TestConversationHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	h := NewConversationHandler(&stubConversationService{err: domain.ErrConversationNotFound})

	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.Get(c); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationHandler_Create(t *testing.T) {
	e := newTestEcho()
	conv := sampleConversation()
	conv.Messages = []domain.Message{}
	svc := &stubConversationService{conv: conv}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/api/conversations", `{"title":"Hello"}`), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.lastTitle != "Hello" {
		t.Fatalf("expected title to reach the service, got %q", svc.lastTitle)
	}

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if msgs, ok := resp["messages"].([]any); !ok || len(msgs) != 0 {
		t.Fatalf("expected empty messages array, got %v", resp["messages"])
	}
}

func TestConversationHandler_Create_EmptyBody(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{conv: sampleConversation()}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodPost, "/api/conversations", nil), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.lastTitle != "" {
		t.Fatalf("expected empty title, got %q", svc.lastTitle)
	}
}

func TestConversationHandler_Create_LongTitleAccepted(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{conv: sampleConversation()}
	h := NewConversationHandler(svc)

	title := strings.Repeat("t", 500)
	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/api/conversations", `{"title":"`+title+`"}`), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.lastTitle != title {
		t.Fatalf("expected the full title to reach the service, got %d chars", len(svc.lastTitle))
	}
}

func TestConversationHandler_SendMessage(t *testing.T) {
	e := newTestEcho()
	conv := sampleConversation()
	svc := &stubConversationService{exchange: &ports.Exchange{UserMessage: conv.Messages[0], AssistantMessage: conv.Messages[1]}}
	h := NewConversationHandler(svc)

	req := jsonRequest(http.MethodPost, "/", `{"content":"hi"}`)
	req.Header.Set(IdempotencyKeyHeader, "retry-1")
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	if err := h.SendMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := ports.SendMessageInput{ConversationID: "conv-1", Content: "hi", IdempotencyKey: "retry-1"}
	if svc.lastSend != want {
		t.Fatalf("service got %+v, want %+v", svc.lastSend, want)
	}

	var resp struct {
		UserMessage      map[string]any `json:"userMessage"`
		AssistantMessage map[string]any `json:"assistantMessage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.UserMessage["id"] != "m-1" || resp.AssistantMessage["id"] != "m-2" {
		t.Fatalf("unexpected exchange: %s", rec.Body.String())
	}
	if rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatal("fresh exchange must not be marked as replayed")
	}
}

func TestConversationHandler_SendMessage_Replayed(t *testing.T) {
	e := newTestEcho()
	conv := sampleConversation()
	svc := &stubConversationService{exchange: &ports.Exchange{UserMessage: conv.Messages[0], AssistantMessage: conv.Messages[1], Replayed: true}}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/", `{"content":"hi"}`), rec)

	if err := h.SendMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay header")
	}
}

func TestConversationHandler_SendMessage_MissingContent(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{}
	h := NewConversationHandler(svc)

	c := authedContext(e, jsonRequest(http.MethodPost, "/", `{}`), httptest.NewRecorder())

	if code := httpCode(t, h.SendMessage(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if svc.lastSend.Content != "" {
		t.Fatal("service must not be called")
	}
}

func TestConversationHandler_SendMessage_RemoteError(t *testing.T) {
	e := newTestEcho()
	h := NewConversationHandler(&stubConversationService{err: domain.ErrRemote})

	c := authedContext(e, jsonRequest(http.MethodPost, "/", `{"content":"hi"}`), httptest.NewRecorder())

	if err := h.SendMessage(c); !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}

func TestConversationHandler_Delete(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["message"] != "Conversation deleted" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestConversationHandler_WithoutClaims(t *testing.T) {
	e := newTestEcho()
	h := NewConversationHandler(&stubConversationService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if err := h.List(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
