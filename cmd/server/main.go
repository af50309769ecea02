package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqcontracts "familytasks/contracts/mq"
	"familytasks/internal/app"
	"familytasks/internal/config"
	"familytasks/internal/handler"
	"familytasks/internal/httpserver"
	"familytasks/internal/mqhandler"
	"familytasks/internal/service"
	"familytasks/pkg/circuitbreaker"
	"familytasks/pkg/logger"
	"familytasks/pkg/mq"
	"familytasks/pkg/outbox"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	log := logger.NewLogger(cfg.App.LogLevel)
	defer log.Sync()

	log.Info("Starting familytasks server...",
		zap.String("env", cfg.App.Env),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("timezone", cfg.App.Timezone),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Bool("mq_enabled", cfg.MQ.URL != ""),
	)

	if cfg.IsProduction() && cfg.Cron.Secret == "" {
		log.Warn("CRON_SECRET_TOKEN is empty in production; every cron request will be rejected")
	}

	c, err := app.Build(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readiness := []httpserver.ReadinessCheck{{Name: "db", Check: c.Ping}}

	// MQ: outbox publishing and the family.created consumer
	var consumer *mq.Consumer
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		readiness = append(readiness, httpserver.ReadinessCheck{
			Name: "mq",
			Check: func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher not connected")
				}
				return nil
			},
		})

		if c.Outbox != nil {
			dispatcher := outbox.NewDispatcher(c.Outbox, publisher, log).
				WithInterval(cfg.OutboxInterval()).
				WithBatchSize(cfg.Outbox.BatchSize).
				WithMaxRetries(cfg.Outbox.MaxRetries).
				WithCircuitBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()))
			go dispatcher.Start(ctx)
			log.Info("Outbox dispatcher started", zap.Duration("interval", cfg.OutboxInterval()))
		}

		log.Info("Initializing MQ consumer for family.created...",
			zap.String("queue", mqcontracts.QueueFamilyCreated),
			zap.String("routing_key", mqcontracts.RoutingKeyFamilyCreated),
		)
		consumer, err = mq.NewConsumer(cfg.MQ.URL, mqcontracts.QueueFamilyCreated, mqcontracts.RoutingKeyFamilyCreated, log)
		if err != nil {
			log.Fatal("Failed to init family.created consumer", zap.Error(err))
		}
		defer consumer.Close()

		familyCreated := mqhandler.NewFamilyCreatedHandler(c.FamilyService, log)
		if c.Deduper != nil {
			familyCreated.WithDeduper(c.Deduper)
		}
		consumer.SetHandler(familyCreated.Handle)

		go func() {
			log.Info("Starting family.created consumer...")
			if err := consumer.StartConsuming(); err != nil {
				log.Error("family.created consumer failed", zap.Error(err))
			}
		}()
	} else {
		log.Warn("MQ disabled; outbox events stay pending and family.created is not consumed")
	}

	// Daily scheduler
	var scheduler *service.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = service.NewScheduler(c.Batch, cfg.Scheduler.DailySpec, c.Location, log).
			WithRunOnStart(cfg.Scheduler.RunOnStart)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Daily scheduler started",
			zap.String("spec", cfg.Scheduler.DailySpec),
			zap.Time("next_run", scheduler.NextRun()),
		)
	}

	// HTTP Server
	router := httpserver.NewRouter(httpserver.Options{
		Cron:             handler.NewCronHandler(c.Batch, c.Materializer, log),
		Templates:        handler.NewTemplateHandler(c.Templates, c.TemplateService, log),
		Instances:        handler.NewInstanceHandler(c.Instances, c.Templates, c.Materializer, log),
		Families:         handler.NewFamilyHandler(c.FamilyService, log),
		JWTSecret:        cfg.JWT.Secret,
		CronAuthRequired: cfg.IsProduction(),
		CronSecret:       cfg.Cron.Secret,
		Readiness:        readiness,
		Logger:           log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("HTTP server starting on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("familytasks server is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Cancel first so an in-flight batch aborts instead of Stop waiting it out.
	cancel()
	if scheduler != nil {
		log.Info("Stopping scheduler...")
		scheduler.Stop()
	}
	if consumer != nil {
		log.Info("Stopping MQ consumer...")
		consumer.Stop()
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("familytasks server shutdown complete")
}
