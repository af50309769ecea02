package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"familytasks/pkg/circuitbreaker"
	"familytasks/pkg/trace"

	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []*Event
	sent    []int64
	failed  []int64
}

func (s *fakeStore) GetPendingEvents(_ context.Context, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) MarkAsSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkAsFailed(_ context.Context, id int64, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

type fakePublisher struct {
	fail     map[string]bool
	traceIDs []string
	keys     []string
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, _ any) error {
	p.keys = append(p.keys, routingKey)
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	if p.fail[routingKey] {
		return errors.New("broker unavailable")
	}
	return nil
}

func event(id int64, key, traceID string) *Event {
	return &Event{ID: id, RoutingKey: key, Payload: json.RawMessage(`{"family_id":"f1"}`), TraceID: traceID}
}

func TestDispatchPendingMarksOutcome(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		event(1, "daily_tasks.generated", "t-1"),
		event(2, "broken.key", ""),
		event(3, "daily_tasks.generated", "t-3"),
	}}
	pub := &fakePublisher{fail: map[string]bool{"broken.key": true}}

	d := NewDispatcher(store, pub, zap.NewNop())
	if got := d.DispatchPending(context.Background()); got != 2 {
		t.Fatalf("sent = %d, want 2", got)
	}
	if len(store.sent) != 2 || store.sent[0] != 1 || store.sent[1] != 3 {
		t.Fatalf("sent ids = %v", store.sent)
	}
	if len(store.failed) != 1 || store.failed[0] != 2 {
		t.Fatalf("failed ids = %v", store.failed)
	}
	if pub.traceIDs[0] != "t-1" || pub.traceIDs[2] != "t-3" {
		t.Fatalf("trace ids not propagated: %v", pub.traceIDs)
	}
}

func TestDispatchPendingStopsWhenBreakerOpens(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		event(1, "down", ""),
		event(2, "down", ""),
		event(3, "down", ""),
	}}
	pub := &fakePublisher{fail: map[string]bool{"down": true}}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Hour,
		HalfOpenMaxRequests: 1,
	})

	d := NewDispatcher(store, pub, zap.NewNop()).WithCircuitBreaker(cb)
	d.DispatchPending(context.Background())

	if len(pub.keys) != 1 {
		t.Fatalf("publisher called %d times, want 1 before the breaker opened", len(pub.keys))
	}
	if len(store.failed) != 1 {
		t.Fatalf("only the attempted event should be charged a retry, got %v", store.failed)
	}
}

func TestDispatchPendingRejectsInvalidPayload(t *testing.T) {
	store := &fakeStore{pending: []*Event{{ID: 9, RoutingKey: "k", Payload: json.RawMessage(`{`)}}}
	pub := &fakePublisher{}

	NewDispatcher(store, pub, zap.NewNop()).DispatchPending(context.Background())
	if len(pub.keys) != 0 {
		t.Fatalf("invalid payload must not reach the broker")
	}
	if len(store.failed) != 1 {
		t.Fatalf("invalid payload should be marked failed")
	}
}

func TestDispatcherStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d := NewDispatcher(&fakeStore{}, &fakePublisher{}, zap.NewNop()).WithInterval(5 * time.Millisecond)
	go func() {
		d.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
