// Package app wires configuration into stores and services. cmd/server and cmd/taskctl
// share it so both run the same engine against the same backing store.
package app

import (
	"context"
	"fmt"
	"time"

	"familytasks/internal/config"
	"familytasks/internal/repository"
	"familytasks/internal/repository/memstore"
	"familytasks/internal/service"
	"familytasks/pkg/db"
	"familytasks/pkg/outbox"
	redisclient "familytasks/pkg/redis"
	"familytasks/pkg/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Components struct {
	Families  repository.FamilyStore
	Templates repository.TemplateStore
	Instances repository.InstanceStore

	// Pool and Outbox are nil with the memory driver.
	Pool   *pgxpool.Pool
	Outbox *outbox.Repository

	// Redis and Deduper are nil when no redis address is configured or it is unreachable.
	Redis   *redis.Client
	Deduper *util.Deduper

	Location        *time.Location
	Materializer    *service.Materializer
	Batch           *service.BatchOrchestrator
	TemplateService *service.TemplateService
	FamilyService   *service.FamilyService
}

func Build(cfg *config.Config, log *zap.Logger) (*Components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	c := &Components{Location: loc}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		store := memstore.New()
		c.Families = store.Families()
		c.Templates = store.Templates()
		c.Instances = store.Instances()
	default:
		log.Info("Initializing database connection...")
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, fmt.Errorf("init db: %w", err)
		}
		log.Info("Database connection established successfully")
		c.Pool = pool
		c.Outbox = outbox.NewRepository(pool)
		c.Families = repository.NewFamilyRepository(pool, log)
		c.Templates = repository.NewTemplateRepository(pool, log)
		c.Instances = repository.NewInstanceRepository(pool, c.Outbox, log)
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, daily lock disabled", zap.Error(err))
	} else if rdb != nil {
		c.Redis = rdb
		c.Deduper = util.NewDeduperWithLogger(rdb, cfg.LockTTL(), log)
	}

	c.Materializer = service.NewMaterializer(c.Templates, c.Instances, log).
		WithLocation(loc).
		WithTimeout(cfg.FamilyTimeout())
	if c.Deduper != nil {
		c.Materializer.WithLocker(c.Deduper)
	}
	c.Batch = service.NewBatchOrchestrator(c.Families, c.Materializer, log).
		WithConcurrency(cfg.Batch.Concurrency).
		WithFamilyTimeout(cfg.FamilyTimeout())
	c.TemplateService = service.NewTemplateService(c.Templates, log)
	c.FamilyService = service.NewFamilyService(c.Families, c.TemplateService, log)
	return c, nil
}

// Ping reports whether the database answers; it is a no-op for the memory driver.
func (c *Components) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return nil
	}
	return c.Pool.Ping(ctx)
}

func (c *Components) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
