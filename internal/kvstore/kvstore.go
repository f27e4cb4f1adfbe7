// Package kvstore provides an explicit key-value store used as the resilience
// cache for drafts, the demo-user registry, and ephemeral pricing-selection
// sessions. Business logic always goes through the Store interface; the
// backend (in-memory or Postgres) is an injection decision.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal key-value contract. Values are raw bytes (callers
// serialize); a zero TTL means the entry never expires. Expired entries
// behave exactly like absent ones.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
