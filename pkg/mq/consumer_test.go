package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// recordingAck captures what the consumer told the broker.
type recordingAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *recordingAck) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *recordingAck) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func testConsumer(h MessageHandler) *Consumer {
	return &Consumer{
		queue:      amqp091.Queue{Name: "family.created.q"},
		routingKey: "family.created",
		handler:    h,
		logger:     zap.NewNop(),
	}
}

func TestConsumerSettlesDeliveries(t *testing.T) {
	panics := func(context.Context, json.RawMessage) error { panic("nil payload field") }
	timesOut := func(context.Context, json.RawMessage) error { return context.DeadlineExceeded }
	permanent := func(context.Context, json.RawMessage) error { return errors.New("bad family") }
	ok := func(context.Context, json.RawMessage) error { return nil }

	cases := []struct {
		name        string
		handler     MessageHandler
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{"success acks", ok, false, true, false},
		{"panic requeues first delivery", panics, false, false, true},
		{"panic on redelivery dead-letters", panics, true, false, false},
		{"retryable error requeues first delivery", timesOut, false, false, true},
		{"retryable error on redelivery dead-letters", timesOut, true, false, false},
		{"permanent error dead-letters", permanent, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ack := &recordingAck{}
			testConsumer(tc.handler).handle(amqp091.Delivery{
				Acknowledger: ack,
				DeliveryTag:  1,
				Redelivered:  tc.redelivered,
				Body:         []byte(`{"family_id":"F1"}`),
			})

			if ack.acked != tc.wantAck {
				t.Fatalf("acked = %v, want %v", ack.acked, tc.wantAck)
			}
			if !tc.wantAck && !ack.nacked {
				t.Fatalf("delivery was neither acked nor nacked")
			}
			if ack.requeued != tc.wantRequeue {
				t.Fatalf("requeue = %v, want %v", ack.requeued, tc.wantRequeue)
			}
		})
	}
}

func TestStartConsumingRequiresHandler(t *testing.T) {
	if err := testConsumer(nil).StartConsuming(); err == nil {
		t.Fatal("expected error without a handler")
	}
}
