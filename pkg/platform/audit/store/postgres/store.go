package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "fleetops/pkg/domain"
	audit "fleetops/pkg/platform/audit"
	"fleetops/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table inside the caller's transaction and
// published to Kafka by the relay worker.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record is an outbox row awaiting publication.
type Record struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, 'driver', $2, $3, $4, $5)
	`
	_, err = tx.Conn(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.DriverID),
		string(event.Action),
		payload,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending returns up to limit unpublished rows, oldest first. Rows are locked
// for the caller's transaction so concurrent relays skip them.
func (s *Store) Pending(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.AggregateID, &r.EventType, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

// MarkPublished stamps rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, v := range ids {
		raw[i] = v.String()
	}
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
		at, pq.Array(raw),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// ListByDriver returns a driver's audit trail, oldest first.
func (s *Store) ListByDriver(ctx context.Context, driverID id.DriverID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM outbox WHERE aggregate_type = 'driver' AND aggregate_id = $1 ORDER BY created_at, id`,
		string(driverID),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var e audit.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
