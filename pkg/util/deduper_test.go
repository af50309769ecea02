package util

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDeduperAcquireIsExclusive(t *testing.T) {
	rdb := newTestRedis(t)
	d := NewDeduper(rdb, 5*time.Second)
	ctx := context.Background()
	key := uuid.NewString()

	release, ok := d.Acquire(ctx, "daily", key)
	if !ok {
		t.Fatalf("first acquire should succeed")
	}
	if _, ok := d.Acquire(ctx, "daily", key); ok {
		t.Fatalf("second acquire should fail while the lock is held")
	}

	release()
	release2, ok := d.Acquire(ctx, "daily", key)
	if !ok {
		t.Fatalf("acquire after release should succeed")
	}
	release2()
}

func TestDeduperAcquireOnce(t *testing.T) {
	rdb := newTestRedis(t)
	d := NewDeduper(rdb, 5*time.Second)
	ctx := context.Background()
	key := uuid.NewString()

	if !d.AcquireOnce(ctx, "family.created", key) {
		t.Fatalf("first delivery should be processed")
	}
	if d.AcquireOnce(ctx, "family.created", key) {
		t.Fatalf("duplicate delivery should be skipped")
	}
}

func TestDeduperForgetAllowsRedelivery(t *testing.T) {
	rdb := newTestRedis(t)
	d := NewDeduper(rdb, 5*time.Second)
	ctx := context.Background()
	key := uuid.NewString()

	if !d.AcquireOnce(ctx, "family.created", key) {
		t.Fatalf("first delivery should be processed")
	}
	d.Forget(ctx, "family.created", key)
	if !d.AcquireOnce(ctx, "family.created", key) {
		t.Fatalf("delivery after Forget should be processed again")
	}
}

func TestDeduperFailsOpenWithoutRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	d := NewDeduper(rdb, time.Second)

	release, ok := d.Acquire(context.Background(), "daily", "x")
	if !ok {
		t.Fatalf("lock should fail open when redis is unreachable")
	}
	release()
	if !d.AcquireOnce(context.Background(), "h", "x") {
		t.Fatalf("dedup should fail open when redis is unreachable")
	}
}
