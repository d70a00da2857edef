package ports

import (
	"context"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// Authenticator issues and verifies session tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	// Authenticate returns domain.ErrUnauthorized for an empty token and
	// domain.ErrInvalidToken when the signature or expiry check fails.
	Authenticate(ctx context.Context, token string) (domain.SessionClaims, error)
}
