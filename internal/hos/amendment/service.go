// Package amendment runs the correction workflow for certified entries.
// An approved request never touches its target: the ledger gains an EDITED
// overlay that supersedes it.
package amendment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fleetops/internal/hos/ledger"
	"fleetops/internal/hos/models"
	"fleetops/internal/platform/tracing"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/audit"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/requestcontext"
)

// Store persists amendment requests. Create fails with sentinel.ErrConflict
// when the target already has a pending request; Decide succeeds only while
// the stored request is still pending.
type Store interface {
	Create(ctx context.Context, a *models.AmendmentRequest) error
	FindByID(ctx context.Context, amendmentID id.AmendmentID) (*models.AmendmentRequest, error)
	FindPending(ctx context.Context, entryID id.EntryID) (*models.AmendmentRequest, error)
	Decide(ctx context.Context, a *models.AmendmentRequest) error
	ListByDriver(ctx context.Context, driverID id.DriverID, state models.AmendmentState) ([]models.AmendmentRequest, error)
}

// Ledger is the part of the ledger service the workflow drives.
type Ledger interface {
	Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	SupersededBy(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	CurrentEntry(ctx context.Context, driverID id.DriverID) (*models.Entry, error)
	Serialize(ctx context.Context, driverID id.DriverID, fn func(ctx context.Context) error) error
	CommitOverlay(ctx context.Context, o ledger.Overlay) (*models.Entry, error)
}

// AuditPublisher records compliance events and fails closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncAmendmentSubmitted()
	IncAmendmentDecision(state string)
}

type Service struct {
	store   Store
	ledger  Ledger
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

func NewService(store Store, l Ledger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ledger: l,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitCommand asks for a correction of one certified entry.
type SubmitCommand struct {
	TargetEntryID id.EntryID
	RequestedBy   id.ActorID
	Reason        string
	Proposal      models.Proposal
}

// Submit files a pending amendment. The target must be closed, certified and
// not superseded, with no other pending request.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (_ *models.AmendmentRequest, err error) {
	ctx, span := tracing.Start(ctx, "amendment.Submit", tracing.AttrEntryID.String(cmd.TargetEntryID.String()))
	defer func() { tracing.End(span, err) }()

	if cmd.RequestedBy == "" {
		cmd.RequestedBy = requestcontext.ActorID(ctx)
	}
	if cmd.RequestedBy == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	target, err := s.ledger.Get(ctx, cmd.TargetEntryID)
	if err != nil {
		return nil, err
	}

	var req *models.AmendmentRequest
	err = s.ledger.Serialize(ctx, target.DriverID, func(ctx context.Context) error {
		target, err := s.ledger.Get(ctx, cmd.TargetEntryID)
		if err != nil {
			return err
		}
		if err := s.checkTarget(ctx, target, cmd.Proposal); err != nil {
			return err
		}
		req, err = models.NewAmendmentRequest(id.NewAmendmentID(), *target, cmd.RequestedBy, cmd.Reason, cmd.Proposal, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.Create(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return pendingExists(target.ID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store amendment")
		}
		return s.emit(ctx, audit.Event{
			Action:   audit.ActionAmendmentSubmitted,
			DriverID: req.DriverID,
			ActorID:  req.RequestedBy,
			Subject:  req.ID.String(),
			Reason:   req.Reason,
			Details: map[string]string{
				"target_entry_id": req.TargetEntryID.String(),
				"proposed_status": string(req.ProposedStatus),
				"proposed_start":  req.ProposedStart.Format(time.RFC3339Nano),
				"proposed_end":    req.ProposedEnd.Format(time.RFC3339Nano),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(tracing.AttrAmendmentID.String(req.ID.String()))
	if s.metrics != nil {
		s.metrics.IncAmendmentSubmitted()
	}
	s.logger.InfoContext(ctx, "amendment submitted",
		"driver_id", req.DriverID,
		"amendment_id", req.ID.String(),
		"target_entry_id", req.TargetEntryID.String(),
		"requested_by", req.RequestedBy,
	)
	return req, nil
}

func (s *Service) checkTarget(ctx context.Context, target *models.Entry, p models.Proposal) error {
	if target.IsOpen() {
		return dErrors.New(dErrors.CodeOpenEntry, "open entries cannot be amended").
			WithDetail("entry_id", target.ID.String())
	}
	if !target.IsCertified() {
		return dErrors.New(dErrors.CodeValidation, "only certified entries can be amended").
			WithDetail("entry_id", target.ID.String())
	}
	if target.IsOverlay() {
		return dErrors.New(dErrors.CodeValidation, "amend the original entry, not its overlay").
			WithDetail("entry_id", target.ID.String()).
			WithDetail("amends_entry_id", target.AmendsEntry.String())
	}
	prior, err := s.ledger.SupersededBy(ctx, target.ID)
	if err != nil {
		return err
	}
	if prior != nil {
		return dErrors.New(dErrors.CodeConflict, "entry was already superseded").
			WithDetail("entry_id", target.ID.String()).
			WithDetail("superseded_by", prior.ID.String())
	}
	pending, err := s.store.FindPending(ctx, target.ID)
	switch {
	case err == nil && pending != nil:
		return pendingExists(target.ID).WithDetail("amendment_id", pending.ID.String())
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pending amendments")
	}
	open, err := s.ledger.CurrentEntry(ctx, target.DriverID)
	if err != nil {
		return err
	}
	if open != nil && p.End.After(open.StartTime) {
		return dErrors.New(dErrors.CodeConflict, "proposed range reaches into the open entry").
			WithDetail("entry_id", open.ID.String()).
			WithDetail("open_since", open.StartTime.Format(time.RFC3339Nano)).
			WithDetail("reason", "reaches_open_entry")
	}
	return nil
}

// DecideCommand approves or rejects a pending amendment.
type DecideCommand struct {
	AmendmentID id.AmendmentID
	Decision    models.AmendmentState
	DecidedBy   id.ActorID
	Note        string
}

// Decide applies a terminal decision. Approval appends the overlay entry in
// the same unit of work as the state change.
func (s *Service) Decide(ctx context.Context, cmd DecideCommand) (_ *models.AmendmentRequest, err error) {
	ctx, span := tracing.Start(ctx, "amendment.Decide",
		tracing.AttrAmendmentID.String(cmd.AmendmentID.String()),
		tracing.AttrStatus.String(string(cmd.Decision)),
	)
	defer func() { tracing.End(span, err) }()

	if cmd.DecidedBy == "" {
		cmd.DecidedBy = requestcontext.ActorID(ctx)
	}
	if cmd.DecidedBy == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	if !cmd.Decision.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be APPROVED or REJECTED").
			WithDetail("decision", string(cmd.Decision))
	}
	req, err := s.Get(ctx, cmd.AmendmentID)
	if err != nil {
		return nil, err
	}

	err = s.ledger.Serialize(ctx, req.DriverID, func(ctx context.Context) error {
		var err error
		req, err = s.Get(ctx, cmd.AmendmentID)
		if err != nil {
			return err
		}
		target, err := s.ledger.Get(ctx, req.TargetEntryID)
		if err != nil {
			return err
		}
		if err := req.CanDecide(cmd.Decision, cmd.DecidedBy, target.RecordedBy); err != nil {
			return err
		}

		var result *id.EntryID
		if cmd.Decision == models.AmendmentApproved {
			p := req.Proposal()
			overlay, err := s.ledger.CommitOverlay(ctx, ledger.Overlay{
				Target:      req.TargetEntryID,
				AmendmentID: req.ID,
				Status:      p.Status,
				Start:       p.Start,
				End:         p.End,
				ApprovedBy:  cmd.DecidedBy,
			})
			if err != nil {
				return err
			}
			result = &overlay.ID
		}
		req.ApplyDecision(cmd.Decision, cmd.DecidedBy, cmd.Note, result, requestcontext.Now(ctx))
		if err := s.store.Decide(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeInvalidTransition, "amendment is not pending").
					WithDetail("amendment_id", req.ID.String())
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store decision")
		}

		event := audit.Event{
			Action:   audit.ActionAmendmentRejected,
			DriverID: req.DriverID,
			ActorID:  cmd.DecidedBy,
			Subject:  req.ID.String(),
			Decision: string(req.State),
			Reason:   req.DecisionNote,
			Details:  map[string]string{"target_entry_id": req.TargetEntryID.String()},
		}
		if result != nil {
			event.Action = audit.ActionAmendmentApproved
			event.Details["result_entry_id"] = result.String()
		}
		return s.emit(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncAmendmentDecision(string(req.State))
	}
	s.logger.InfoContext(ctx, "amendment decided",
		"driver_id", req.DriverID,
		"amendment_id", req.ID.String(),
		"state", req.State,
		"decided_by", req.DecidedBy,
	)
	return req, nil
}

// Get returns one amendment request.
func (s *Service) Get(ctx context.Context, amendmentID id.AmendmentID) (*models.AmendmentRequest, error) {
	req, err := s.store.FindByID(ctx, amendmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "amendment not found").
				WithDetail("amendment_id", amendmentID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load amendment")
	}
	return req, nil
}

// List returns a driver's requests, oldest first. An empty state lists all.
func (s *Service) List(ctx context.Context, driverID id.DriverID, state models.AmendmentState) ([]models.AmendmentRequest, error) {
	out, err := s.store.ListByDriver(ctx, driverID, state)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list amendments").
			WithDetail("driver_id", string(driverID))
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}

func pendingExists(entryID id.EntryID) *dErrors.Error {
	return dErrors.New(dErrors.CodeConflict, "entry already has a pending amendment").
		WithDetail("entry_id", entryID.String()).
		WithDetail("reason", "pending_amendment")
}
