package ports

import (
	"context"

	"github.com/llmgate/chat-gateway/internal/core/domain"
)

// CredentialStore is the read-only source of user accounts.
type CredentialStore interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches exactly.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(password, hash string) bool
}
