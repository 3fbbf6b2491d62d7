package ledger

import (
	"context"
	"iter"
	"time"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
)

// Store is the durable, per-driver ordered entry log. It is pure I/O: every
// ledger rule lives in the Service.
type Store interface {
	// Head returns the last committed sequence and the open entry. A driver
	// with no entries has a zero Head.
	Head(ctx context.Context, driverID id.DriverID) (models.Head, error)

	// Commit atomically closes the open entry (when closed is non-nil) and
	// inserts next with sequence expectedSeq+1. It fails with
	// sentinel.ErrConflict if the driver's head is no longer expectedSeq.
	Commit(ctx context.Context, driverID id.DriverID, expectedSeq int64, closed *models.Entry, next models.Entry) error

	FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error)

	// MarkCertified sets certified_at once; a second call fails with
	// sentinel.ErrAlreadyUsed.
	MarkCertified(ctx context.Context, entryID id.EntryID, at time.Time, by id.ActorID) error

	// Scan yields, in sequence order, the driver's entries intersecting
	// [from, to) together with any overlay amending one of them. A zero to
	// means unbounded.
	Scan(ctx context.Context, driverID id.DriverID, from, to time.Time) iter.Seq2[models.Entry, error]

	// SupersededBy returns the overlay that replaced entryID, if any.
	SupersededBy(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
}
