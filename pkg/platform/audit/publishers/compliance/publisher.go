// Package compliance provides a fail-closed audit publisher for regulatory
// events.
//
// Emit writes synchronously to the audit store and returns its error. Called
// inside a unit of work, the event commits or rolls back with the ledger
// change it describes: if the audit cannot be persisted, the operation fails.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetops/pkg/platform/audit"
	"fleetops/pkg/requestcontext"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event. The caller MUST fail its
// operation when an error is returned.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.DriverID == "" {
		return fmt.Errorf("compliance event requires DriverID")
	}
	if !event.Action.IsKnown() {
		return fmt.Errorf("compliance event has unknown action %q", event.Action)
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"driver_id", event.DriverID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted(string(event.Action))
	}
	return nil
}
