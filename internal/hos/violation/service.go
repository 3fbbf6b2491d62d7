package violation

import (
	"context"
	"errors"
	"log/slog"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/audit"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/platform/tx"
	"fleetops/pkg/requestcontext"
)

// Store persists detected violations. Insert is insert-if-absent keyed by the
// deterministic violation id; Resolve succeeds only for unresolved rows.
type Store interface {
	Insert(ctx context.Context, v models.Violation) (bool, error)
	FindByID(ctx context.Context, violationID id.ViolationID) (*models.Violation, error)
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error)
	Resolve(ctx context.Context, v models.Violation) error
}

// AuditPublisher records compliance events and fails closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Metrics is the subset of the HOS metrics the service reports to.
type Metrics interface {
	IncViolationRecorded(kind, severity string)
	IncViolationResolved(kind string)
}

// Service owns the stored violation record: recording newly detected
// violations and their explicit resolution.
type Service struct {
	store   Store
	tx      tx.Runner
	auditor AuditPublisher
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     tx.Passthrough{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record persists violations not stored yet and returns those that were new.
// Any failure is returned: a detected violation is never dropped.
func (s *Service) Record(ctx context.Context, violations []models.Violation) ([]models.Violation, error) {
	if len(violations) == 0 {
		return nil, nil
	}
	var inserted []models.Violation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		inserted = inserted[:0]
		for _, v := range violations {
			ok, err := s.store.Insert(ctx, v)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist violation").
					WithDetail("driver_id", string(v.DriverID)).
					WithDetail("kind", string(v.Kind))
			}
			if !ok {
				continue
			}
			if err := s.emit(ctx, audit.Event{
				Action:   audit.ActionViolationDetected,
				DriverID: v.DriverID,
				Subject:  v.ID.String(),
				Decision: string(v.Severity),
				Reason:   string(v.Kind),
				Details: map[string]string{
					"triggering_entry_id": v.TriggeringEntryID.String(),
					"rule_set":            v.RuleSetKey,
				},
			}); err != nil {
				return err
			}
			inserted = append(inserted, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, v := range inserted {
		s.logger.WarnContext(ctx, "hos violation recorded",
			"driver_id", v.DriverID,
			"violation_id", v.ID.String(),
			"kind", v.Kind,
			"severity", v.Severity,
			"detected_at", v.DetectedAt,
		)
		if s.metrics != nil {
			s.metrics.IncViolationRecorded(string(v.Kind), string(v.Severity))
		}
	}
	return inserted, nil
}

// List returns stored violations matching filter, oldest detection first.
func (s *Service) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list violations")
	}
	return out, nil
}

// Get returns one stored violation.
func (s *Service) Get(ctx context.Context, violationID id.ViolationID) (*models.Violation, error) {
	v, err := s.store.FindByID(ctx, violationID)
	if err != nil {
		return nil, translate(err, violationID)
	}
	return v, nil
}

// Resolve is the authorized, explicit resolution of a stored violation.
func (s *Service) Resolve(ctx context.Context, violationID id.ViolationID, actor id.ActorID, note string) (*models.Violation, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	var result *models.Violation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.FindByID(ctx, violationID)
		if err != nil {
			return translate(err, violationID)
		}
		if err := v.CanResolve(); err != nil {
			return err
		}
		v.ApplyResolution(actor, note, requestcontext.Now(ctx))
		if err := s.store.Resolve(ctx, *v); err != nil {
			return translate(err, violationID)
		}
		if err := s.emit(ctx, audit.Event{
			Action:   audit.ActionViolationResolved,
			DriverID: v.DriverID,
			ActorID:  actor,
			Subject:  v.ID.String(),
			Reason:   note,
		}); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "hos violation resolved",
		"driver_id", result.DriverID,
		"violation_id", result.ID.String(),
		"resolved_by", actor,
	)
	if s.metrics != nil {
		s.metrics.IncViolationResolved(string(result.Kind))
	}
	return result, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}

func translate(err error, violationID id.ViolationID) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "violation not found").WithDetail("violation_id", violationID.String())
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeInvalidTransition, "violation already resolved").WithDetail("violation_id", violationID.String())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "violation store failure")
	}
}
