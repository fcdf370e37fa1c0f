package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	t.Run("set and get", func(t *testing.T) {
		c.Set(ctx, "key", "value", time.Hour)

		val, ok := c.Get(ctx, "key")
		if !ok {
			t.Fatal("expected key to exist")
		}
		if val != "value" {
			t.Errorf("Get() = %v, want %v", val, "value")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, ok := c.Get(ctx, "missing"); ok {
			t.Error("expected key to not exist")
		}
	})

	t.Run("expired entry", func(t *testing.T) {
		c.Set(ctx, "expired", "value", -time.Hour)

		if _, ok := c.Get(ctx, "expired"); ok {
			t.Error("expected expired key to not exist")
		}
	})
}

func TestMemoryCache_Clock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(WithClock(func() time.Time { return now }))

	c.Set(ctx, "k", 1, time.Minute)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected fresh entry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire after its TTL")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, "key", "old", -time.Second)
	c.Set(ctx, "key", "new", time.Hour)

	if val, ok := c.Get(ctx, "key"); !ok || val != "new" {
		t.Errorf("Get() = %v, %v; want the fresh value", val, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestMemoryCache_Cleanup(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, "valid", "value", time.Hour)
	c.Set(ctx, "expired", "value", -time.Second)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	if dropped := c.Cleanup(); dropped != 1 {
		t.Errorf("Cleanup() = %d, want 1", dropped)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get(ctx, "valid"); !ok {
		t.Error("expected valid key to exist")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := Key("tables", string(rune('a'+i)))
			for range 100 {
				c.Set(ctx, key, i, time.Hour)
				c.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	if c.Len() != 8 {
		t.Errorf("Len() = %d, want 8", c.Len())
	}
}

func TestKey(t *testing.T) {
	if Key("Columns", "MAIN", "Users") != Key("columns", "main", "users") {
		t.Error("keys should ignore case")
	}
	if Key("a", "bc") == Key("ab", "c") {
		t.Error("keys with different part boundaries should differ")
	}
}
