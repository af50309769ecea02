package util

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Deduper guards work with Redis SET NX keys. Every method fails open: when Redis is
// unreachable the caller is allowed to proceed and the storage layer's own uniqueness
// has the final say.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return NewDeduperWithLogger(rdb, ttl, zap.NewNop())
}

func NewDeduperWithLogger(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time handler+key is seen within the TTL.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, key string) bool {
	dedupKey := fmt.Sprintf("dedup:%s:%s", handler, key)

	ok, err := d.rdb.SetNX(ctx, dedupKey, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("dedup_key", dedupKey),
		)
	}
	return ok
}

// Forget drops the AcquireOnce mark so a redelivery of handler+key is processed again.
// Call it when the guarded work failed.
func (d *Deduper) Forget(ctx context.Context, handler, key string) {
	dedupKey := fmt.Sprintf("dedup:%s:%s", handler, key)
	if err := d.rdb.Del(ctx, dedupKey).Err(); err != nil {
		d.logger.Warn("Failed to clear dedup key",
			zap.String("dedup_key", dedupKey),
			zap.Error(err),
		)
	}
}

// Acquire takes a short-lived lock on scope+key. The returned release func is always
// safe to call; it only removes the lock if this caller still owns it.
func (d *Deduper) Acquire(ctx context.Context, scope, key string) (func(), bool) {
	lockKey := fmt.Sprintf("lock:%s:%s", scope, key)
	token := uuid.NewString()

	ok, err := d.rdb.SetNX(ctx, lockKey, token, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis lock unavailable, proceeding without it",
			zap.String("lock_key", lockKey),
			zap.Error(err),
		)
		return func() {}, true
	}
	if !ok {
		d.logger.Info("Lock held by another worker", zap.String("lock_key", lockKey))
		return func() {}, false
	}

	return func() {
		// Use a fresh context: the caller's may already be cancelled.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, d.rdb, []string{lockKey}, token).Err(); err != nil {
			d.logger.Warn("Failed to release lock", zap.String("lock_key", lockKey), zap.Error(err))
		}
	}, true
}
