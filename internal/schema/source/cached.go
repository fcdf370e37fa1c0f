package source

import (
	"context"
	"time"

	"github.com/electwix/sqlcomplete/internal/cache"
	"github.com/electwix/sqlcomplete/internal/dialect"
)

// DefaultTTL is how long Cached keeps a lookup when no TTL is given.
const DefaultTTL = 30 * time.Second

// Cached memoizes the lookups of another source. Errors are never cached.
type Cached struct {
	inner Source
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner. A nil c uses a fresh in-memory cache and a
// non-positive ttl uses DefaultTTL.
func NewCached(inner Source, c cache.Cache, ttl time.Duration) *Cached {
	if c == nil {
		c = cache.NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Connected delegates to the wrapped source.
func (c *Cached) Connected() bool {
	return c.inner.Connected()
}

func (c *Cached) Tables(ctx context.Context, database string) ([]Table, error) {
	return memo(ctx, c, cache.Key("tables", database), func() ([]Table, error) {
		return c.inner.Tables(ctx, database)
	})
}

func (c *Cached) Columns(ctx context.Context, database, table string) ([]Column, error) {
	return memo(ctx, c, cache.Key("columns", database, table), func() ([]Column, error) {
		return c.inner.Columns(ctx, database, table)
	})
}

func (c *Cached) Indexes(ctx context.Context, database string) ([]string, error) {
	return memo(ctx, c, cache.Key("indexes", database), func() ([]string, error) {
		return c.inner.Indexes(ctx, database)
	})
}

func (c *Cached) Triggers(ctx context.Context, database string) ([]string, error) {
	return memo(ctx, c, cache.Key("triggers", database), func() ([]string, error) {
		return c.inner.Triggers(ctx, database)
	})
}

func (c *Cached) Views(ctx context.Context, database string) ([]string, error) {
	return memo(ctx, c, cache.Key("views", database), func() ([]string, error) {
		return c.inner.Views(ctx, database)
	})
}

func (c *Cached) Databases(ctx context.Context) ([]string, error) {
	return memo(ctx, c, cache.Key("databases"), func() ([]string, error) {
		return c.inner.Databases(ctx)
	})
}

func (c *Cached) Pragmas(ctx context.Context, d dialect.Dialect) ([]string, error) {
	return memo(ctx, c, cache.Key("pragmas", string(d)), func() ([]string, error) {
		return c.inner.Pragmas(ctx, d)
	})
}

func (c *Cached) Functions(ctx context.Context, d dialect.Dialect) ([]dialect.Function, error) {
	return memo(ctx, c, cache.Key("functions", string(d)), func() ([]dialect.Function, error) {
		return c.inner.Functions(ctx, d)
	})
}

func (c *Cached) Collations(ctx context.Context) ([]string, error) {
	return memo(ctx, c, cache.Key("collations"), func() ([]string, error) {
		return c.inner.Collations(ctx)
	})
}

// memo returns the cached value for key or computes and stores it. Callers
// receive a copy so they cannot mutate the cached slice.
func memo[T any](ctx context.Context, c *Cached, key string, load func() ([]T, error)) ([]T, error) {
	if v, ok := c.cache.Get(ctx, key); ok {
		if items, ok := v.([]T); ok {
			return append([]T(nil), items...), nil
		}
	}
	items, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, items, c.ttl)
	return append([]T(nil), items...), nil
}

var _ Source = (*Cached)(nil)
