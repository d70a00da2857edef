package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/llmgate/chat-gateway/internal/core/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// kv is the subset of redis.Cmdable the idempotency store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// IdempotencyStore keeps encoded exchanges under caller-built keys
// (idem:<user>:<conversation>:<key>) until their TTL runs out.
type IdempotencyStore struct {
	client kv
}

// NewIdempotencyStore wraps the given Redis client.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Lookup returns the stored payload; a missing key is found=false with no error.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return b, true, nil
}

// Save stores payload under key, expiring after ttl.
func (s *IdempotencyStore) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}
