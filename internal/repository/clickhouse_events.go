package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmoiron/sqlx"
)

// EventsRepository is the audit trail of customer mutations.
type EventsRepository interface {
	InsertBatch(ctx context.Context, events []model.Event) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.Event, error)
}

type eventRow struct {
	ID         string    `db:"id"`
	Type       string    `db:"type"`
	CustomerID string    `db:"customer_id"`
	Payload    string    `db:"payload"`
	OccurredAt time.Time `db:"occurred_at"`
}

type chEventsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHEventsRepository(ch *sqlx.DB) EventsRepository {
	return &chEventsRepository{ch: ch}
}

// InsertBatch sends all rows as one ClickHouse block.
func (r *chEventsRepository) InsertBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO customer_events (id, type, customer_id, payload, occurred_at)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		payload := ""
		if ev.Customer != nil {
			b, err := json.Marshal(ev.Customer)
			if err != nil {
				return err
			}
			payload = string(b)
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.Type.String(), ev.CustomerID, payload, ev.OccurredAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *chEventsRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT id, type, customer_id, payload, occurred_at
		FROM customer_events
		WHERE customer_id = ?
		ORDER BY occurred_at DESC
		LIMIT ? OFFSET ?
	`
	var rows []eventRow
	if err := r.ch.SelectContext(ctx, &rows, q, customerID, limit, offset); err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		ev := model.Event{
			ID:         row.ID,
			Type:       model.EventType(row.Type),
			CustomerID: row.CustomerID,
			OccurredAt: row.OccurredAt,
		}
		if row.Payload != "" {
			var c model.Customer
			if err := json.Unmarshal([]byte(row.Payload), &c); err == nil {
				ev.Customer = &c
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
