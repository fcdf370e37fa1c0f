// Package cache provides TTL caches for schema metadata.
//
// The cache package defines a small Cache interface and an in-memory
// implementation used by the caching schema source, so repeated completion
// requests against the same database do not re-run introspection queries.
//
// Usage:
//
//	c := cache.NewMemoryCache()
//	c.Set(ctx, cache.Key("columns", "main", "users"), cols, 30*time.Second)
//	if val, ok := c.Get(ctx, cache.Key("columns", "main", "users")); ok {
//	    // use cached value
//	}
package cache
