package memory

import (
	"context"
	"fmt"

	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
)

var _ ports.CredentialStore = (*CredentialStore)(nil)

// Seed describes an account to create at startup from a plaintext password.
type Seed struct {
	ID       int
	Username string
	Password string
	Role     domain.Role
}

// Hasher turns a plaintext password into a stored hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// DefaultSeeds returns the three built-in accounts with the given passwords.
func DefaultSeeds(adminPass, managerPass, userPass string) []Seed {
	return []Seed{
		{ID: 1, Username: "admin", Password: adminPass, Role: domain.RoleAdmin},
		{ID: 2, Username: "manager", Password: managerPass, Role: domain.RoleManager},
		{ID: 3, Username: "user", Password: userPass, Role: domain.RoleUser},
	}
}

// CredentialStore is an immutable, in-memory set of users.
// It is safe for concurrent use because it is never written after construction.
type CredentialStore struct {
	users      []domain.User
	byUsername map[string]int
}

// NewCredentialStore builds a store from already-hashed users. Duplicate ids
// or usernames are rejected.
func NewCredentialStore(users ...domain.User) (*CredentialStore, error) {
	s := &CredentialStore{
		users:      make([]domain.User, 0, len(users)),
		byUsername: make(map[string]int, len(users)),
	}
	ids := make(map[int]struct{}, len(users))
	for _, u := range users {
		if _, ok := s.byUsername[u.Username]; ok {
			return nil, fmt.Errorf("%w: username %q", domain.ErrDuplicateUser, u.Username)
		}
		if _, ok := ids[u.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", domain.ErrDuplicateUser, u.ID)
		}
		ids[u.ID] = struct{}{}
		s.byUsername[u.Username] = len(s.users)
		s.users = append(s.users, u)
	}
	return s, nil
}

// NewSeededCredentialStore hashes each seed's password and builds a store.
func NewSeededCredentialStore(h Hasher, seeds []Seed) (*CredentialStore, error) {
	users := make([]domain.User, 0, len(seeds))
	for _, sd := range seeds {
		hash, err := h.Hash(sd.Password)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", sd.Username, err)
		}
		users = append(users, domain.User{
			ID:           sd.ID,
			Username:     sd.Username,
			PasswordHash: hash,
			Role:         sd.Role,
		})
	}
	return NewCredentialStore(users...)
}

// FindByUsername returns a copy of the user with exactly this username.
func (s *CredentialStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	i, ok := s.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := s.users[i]
	return &u, nil
}

// List returns all users in seed order.
func (s *CredentialStore) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out, nil
}
