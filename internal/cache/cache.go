package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores lookup results until their TTL runs out. Stale entries are
// never returned, so there is no explicit invalidation.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// keySep separates key parts. It cannot appear in SQLite identifiers.
const keySep = "\x00"

// Key joins parts into a cache key. Parts are folded to lower case because
// SQLite object names are case-insensitive.
func Key(parts ...string) string {
	return strings.ToLower(strings.Join(parts, keySep))
}

// Entry represents a cached entry with expiration.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// ExpiredAt reports whether the entry has expired at now.
func (e Entry) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
