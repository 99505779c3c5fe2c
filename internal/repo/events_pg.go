package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/miniapp-shop/internal/events"
)

// EventPG appends domain events to the domain_events table.
type EventPG struct {
	Pool *pgxpool.Pool
}

func (r *EventPG) Insert(ctx context.Context, ev events.Event) (events.Event, error) {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.ID, ev.Topic, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}
