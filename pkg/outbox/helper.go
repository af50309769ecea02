package outbox

import (
	"context"
	"encoding/json"

	"familytasks/pkg/trace"

	"github.com/jackc/pgx/v5"
)

// InsertEventInTx marshals payload and stages it in tx, tagging it with ctx's trace id.
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID string,
	routingKey string,
	payload interface{},
) (*Event, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		TraceID:       trace.FromContext(ctx),
		Status:        StatusPending,
	}

	if err := repo.InsertEvent(ctx, tx, event); err != nil {
		return nil, err
	}
	return event, nil
}
