package ledger

import (
	"context"
	"errors"
	"time"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/requestcontext"
)

type heldKey struct{}

// Serialize runs fn under the driver's write lock and inside one unit of work.
// Calls nested inside fn for the same driver reuse the held lock.
func (s *Service) Serialize(ctx context.Context, driverID id.DriverID, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(heldKey{}).(id.DriverID); held == driverID {
		return s.tx.RunInTx(ctx, fn)
	}

	lockCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	waitStart := time.Now()
	unlock, err := s.locker.Lock(lockCtx, driverID)
	if err != nil {
		return err
	}
	defer unlock()
	if s.metrics != nil {
		s.metrics.ObserveLockWait(waitStart)
	}

	return s.tx.RunInTx(context.WithValue(ctx, heldKey{}, driverID), fn)
}

// Overlay is the corrected segment an approved amendment puts in place of its
// target.
type Overlay struct {
	Target      id.EntryID
	AmendmentID id.AmendmentID
	Status      models.DutyStatus
	Start       time.Time
	End         time.Time
	ApprovedBy  id.ActorID
}

// CommitOverlay appends the EDITED entry for an approved amendment. The
// target is never modified. It must run inside Serialize for the target's
// driver.
func (s *Service) CommitOverlay(ctx context.Context, o Overlay) (*models.Entry, error) {
	target, err := s.store.FindByID(ctx, o.Target)
	if err != nil {
		return nil, notFound(err, o.Target)
	}
	if held, _ := ctx.Value(heldKey{}).(id.DriverID); held != target.DriverID {
		return nil, dErrors.New(dErrors.CodeInternal, "overlay commit outside the driver lock").
			WithDetail("driver_id", string(target.DriverID))
	}
	if prior, err := s.store.SupersededBy(ctx, o.Target); err == nil && prior != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "entry was already superseded").
			WithDetail("entry_id", o.Target.String()).
			WithDetail("superseded_by", prior.ID.String())
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up overlays")
	}
	if !o.End.After(o.Start) {
		return nil, dErrors.New(dErrors.CodeValidation, "overlay must end after it starts")
	}

	head, err := s.store.Head(ctx, target.DriverID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger head")
	}
	if head.Open != nil && o.End.After(head.Open.StartTime) {
		return nil, dErrors.New(dErrors.CodeConflict, "overlay reaches into the open entry").
			WithDetail("entry_id", head.Open.ID.String()).
			WithDetail("open_since", head.Open.StartTime.Format(time.RFC3339Nano))
	}

	end := o.End
	targetID := o.Target
	amendmentID := o.AmendmentID
	entry := models.Entry{
		ID:          id.NewEntryID(),
		DriverID:    target.DriverID,
		Sequence:    head.Sequence + 1,
		Status:      o.Status,
		StartTime:   o.Start,
		EndTime:     &end,
		Metadata:    target.Metadata,
		DataSource:  models.SourceEdited,
		RecordedBy:  o.ApprovedBy,
		RecordedAt:  requestcontext.Now(ctx),
		AmendsEntry: &targetID,
		AmendmentID: &amendmentID,
	}
	if err := s.store.Commit(ctx, target.DriverID, head.Sequence, nil, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, conflict(target.DriverID, "concurrent_write", "ledger head moved during overlay commit")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit overlay")
	}
	s.logger.InfoContext(ctx, "overlay entry committed",
		"driver_id", entry.DriverID,
		"entry_id", entry.ID.String(),
		"amends_entry_id", targetID.String(),
		"amendment_id", amendmentID.String(),
	)
	return &entry, nil
}
