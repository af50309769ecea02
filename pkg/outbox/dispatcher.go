package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"familytasks/pkg/circuitbreaker"
	"familytasks/pkg/logger"
	"familytasks/pkg/metrics"
	"familytasks/pkg/trace"

	"go.uber.org/zap"
)

// EventStore is the part of Repository the dispatcher needs.
type EventStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher polls the outbox and hands pending events to the broker.
type Dispatcher struct {
	store      EventStore
	publisher  EventPublisher
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store EventStore, publisher EventPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	d.batchSize = batchSize
	return d
}

func (d *Dispatcher) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *Dispatcher {
	d.breaker = cb
	return d
}

// Start blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchPending(ctx)
		}
	}
}

// DispatchPending publishes one batch and returns how many events were sent. The pass
// stops early while the breaker is open; those events stay pending without a retry
// being charged.
func (d *Dispatcher) DispatchPending(ctx context.Context) int {
	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to load pending outbox events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, event := range events {
		evCtx := ctx
		if event.TraceID != "" {
			evCtx = trace.WithContext(ctx, event.TraceID)
		}
		log := logger.WithTrace(evCtx, d.logger).With(
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
		)

		err := d.breaker.Execute(func() error {
			return d.publish(evCtx, event)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			metrics.IncrementOutboxPublished("rejected")
			log.Warn("Broker circuit open, deferring remaining events",
				zap.Int("remaining", len(events)-sent),
			)
			return sent
		}
		if err != nil {
			metrics.IncrementOutboxPublished("failed")
			log.Error("Failed to publish outbox event", zap.Error(err))
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				log.Error("Failed to record publish failure", zap.Error(err))
			}
			continue
		}

		metrics.IncrementOutboxPublished("sent")
		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			// The event will be published again; consumers dedupe on their side.
			log.Error("Failed to mark event as sent", zap.Error(err))
			continue
		}
		sent++
		log.Debug("Outbox event published")
	}
	return sent
}

func (d *Dispatcher) publish(ctx context.Context, event *Event) error {
	if !json.Valid(event.Payload) {
		return fmt.Errorf("event %d has an invalid JSON payload", event.ID)
	}
	if err := d.publisher.PublishWithContext(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}
