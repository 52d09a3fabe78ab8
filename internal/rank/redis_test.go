// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestRedisCacheRoundtrip(t *testing.T) {
	c, _ := testRedisCache(t)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Set(ctx, "k", entryFixture(), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get after Set should hit")
	}
	if len(got.IDs) != 2 || got.IDs[0] != 20 || got.Sources[0] != "semantic" {
		t.Errorf("entry = %+v, want the stored order", got)
	}
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := testRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", entryFixture(), time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("entry should expire with its TTL")
	}
}

func TestRedisCacheUnavailableIsMiss(t *testing.T) {
	c, mr := testRedisCache(t)
	mr.Close()

	ctx := context.Background()
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("a down redis should read as a miss, not an error")
	}
	// Set must not panic either; the next request just recomputes.
	c.Set(ctx, "k", entryFixture(), time.Minute)
}

func TestNewRedisCacheFromURL(t *testing.T) {
	if _, err := NewRedisCacheFromURL("redis://localhost:6379/0"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	if _, err := NewRedisCacheFromURL("not a url"); err == nil {
		t.Error("invalid URL should be rejected")
	}
}
