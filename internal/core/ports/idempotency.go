package ports

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of a request for a limited time so
// a retried request can be answered without repeating its side effects.
type IdempotencyStore interface {
	// Lookup reports found=false, err=nil on a miss.
	Lookup(ctx context.Context, key string) (payload []byte, found bool, err error)
	Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
