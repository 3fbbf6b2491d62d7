// Package worker relays audit events from the transactional outbox to the
// broker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetops/pkg/platform/audit/store/postgres"
	"fleetops/pkg/platform/circuit"
	"fleetops/pkg/platform/tx"
)

// Outbox is the pending side of the outbox table.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]postgres.Record, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers one encoded event.
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload []byte) error
}

// Metrics counts delivered records.
type Metrics interface {
	AddOutboxPublished(n int)
}

// Relay drains the outbox in batches. Delivery is at-least-once: a crash
// between publish and commit republishes the batch, and consumers dedupe on
// the event id carried in the payload.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	tx        tx.Runner
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   Metrics
	interval  time.Duration
	backoff   time.Duration
	batch     int
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithInterval sets the poll interval and the longer wait used while the
// breaker is open.
func WithInterval(interval, backoff time.Duration) Option {
	return func(r *Relay) {
		if interval > 0 {
			r.interval = interval
		}
		if backoff > 0 {
			r.backoff = backoff
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func NewRelay(outbox Outbox, publisher Publisher, runner tx.Runner, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		tx:        runner,
		breaker:   circuit.New("audit-relay", circuit.WithFailureThreshold(3)),
		logger:    slog.Default(),
		interval:  time.Second,
		backoff:   15 * time.Second,
		batch:     100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		n, err := r.RelayOnce(ctx)
		wait := r.interval
		if err != nil {
			if _, change := r.breaker.RecordFailure(); change.Opened {
				r.logger.WarnContext(ctx, "audit relay circuit opened", "error", err)
			}
		} else if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "audit relay circuit closed")
		}
		if r.breaker.IsOpen() {
			wait = r.backoff
		} else if n == r.batch {
			wait = 0
		}
		timer.Reset(wait)
	}
}

// RelayOnce publishes one batch and returns how many events were delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var delivered int
	var publishErr error
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		records, err := r.outbox.Pending(ctx, r.batch)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(records))
		for _, rec := range records {
			if err := r.publisher.Publish(ctx, rec.AggregateID, rec.EventType, rec.Payload); err != nil {
				publishErr = err
				break
			}
			ids = append(ids, rec.ID)
		}
		delivered = len(ids)
		return r.outbox.MarkPublished(ctx, ids, r.now())
	})
	if err != nil {
		return 0, err
	}
	if r.metrics != nil && delivered > 0 {
		r.metrics.AddOutboxPublished(delivered)
	}
	return delivered, publishErr
}
