package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Schema creates the outbox table the worker drains.
const Schema = `CREATE TABLE IF NOT EXISTS booking_outbox (
	id BIGSERIAL PRIMARY KEY,
	subject TEXT NOT NULL,
	payload JSONB NOT NULL,
	published BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the outbox table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}

// Store implements domain.EventPublisher by staging events in the outbox
// table. Delivery to NATS happens asynchronously in the Worker, so a broker
// outage never fails a booking mutation.
type Store struct {
	db      *sql.DB
	subject string
}

// NewStore constructs a store publishing to the given NATS subject.
func NewStore(db *sql.DB, subject string) *Store {
	return &Store{db: db, subject: subject}
}

// Publish inserts the event into the outbox table.
func (s *Store) Publish(ctx context.Context, event domain.BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO booking_outbox (subject, payload) VALUES ($1, $2)`,
		s.subject, payload); err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}
