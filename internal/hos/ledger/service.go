// Package ledger is the append-only duty-status log of each driver.
//
// All writes for one driver (Append, Certify, overlay commits from approved
// amendments) run under that driver's lock and inside one unit of work, so
// closing the open entry and opening the next commit together or not at all.
// Reads never take the lock; they see only committed entries.
package ledger

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strconv"
	"time"

	"fleetops/internal/hos/models"
	"fleetops/internal/platform/tracing"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/audit"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/platform/tx"
	"fleetops/pkg/requestcontext"
)

// AuditPublisher records compliance events and fails closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Metrics is the subset of the HOS metrics the ledger reports to.
type Metrics interface {
	IncAppended(status string)
	IncAppendConflict(reason string)
	ObserveAppend(start time.Time)
	ObserveLockWait(start time.Time)
	AddCertified(n int)
}

const defaultMaxClockSkew = 5 * time.Minute

// Service enforces the ledger invariants on top of a Store.
type Service struct {
	store        Store
	locker       Locker
	tx           tx.Runner
	auditor      AuditPublisher
	logger       *slog.Logger
	metrics      Metrics
	maxClockSkew time.Duration
	lockTimeout  time.Duration
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

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithMaxClockSkew bounds how far in the future a reported status change may
// be. Zero disables the check.
func WithMaxClockSkew(d time.Duration) Option {
	return func(s *Service) { s.maxClockSkew = d }
}

// WithLockTimeout bounds the wait for a driver's lock when the caller's
// context has no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		locker:       NewShardedLocker(),
		tx:           tx.Passthrough{},
		logger:       slog.Default(),
		maxClockSkew: defaultMaxClockSkew,
		lockTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendCommand is a reported status change.
type AppendCommand struct {
	DriverID   id.DriverID
	Status     models.DutyStatus
	At         time.Time
	Metadata   models.Metadata
	Source     models.DataSource
	RecordedBy id.ActorID
	// ExpectedSequence pins the head sequence the client last observed.
	ExpectedSequence *int64
}

func (c AppendCommand) validate(now time.Time, maxSkew time.Duration) error {
	switch {
	case c.DriverID == "":
		return dErrors.New(dErrors.CodeValidation, "driver_id is required")
	case !c.Status.IsValid():
		return dErrors.New(dErrors.CodeValidation, "invalid duty status").WithDetail("status", string(c.Status))
	case c.Source == models.SourceEdited:
		return dErrors.New(dErrors.CodeValidation, "EDITED entries are created only by approved amendments")
	case c.At.IsZero():
		return dErrors.New(dErrors.CodeValidation, "at is required")
	case maxSkew > 0 && c.At.After(now.Add(maxSkew)):
		return dErrors.New(dErrors.CodeValidation, "status change is in the future").
			WithDetail("at", c.At.Format(time.RFC3339Nano))
	}
	return nil
}

// Append closes the driver's open entry at cmd.At and opens a new one.
func (s *Service) Append(ctx context.Context, cmd AppendCommand) (_ *models.Entry, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "ledger.Append",
		tracing.AttrDriverID.String(string(cmd.DriverID)),
		tracing.AttrStatus.String(string(cmd.Status)),
	)
	defer func() { tracing.End(span, err) }()

	now := requestcontext.Now(ctx)
	if cmd.Source == "" {
		cmd.Source = models.SourceManual
	}
	if cmd.RecordedBy == "" {
		cmd.RecordedBy = requestcontext.ActorID(ctx)
	}
	if err := cmd.validate(now, s.maxClockSkew); err != nil {
		return nil, err
	}

	var entry models.Entry
	err = s.Serialize(ctx, cmd.DriverID, func(ctx context.Context) error {
		head, err := s.store.Head(ctx, cmd.DriverID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger head")
		}
		if err := checkAppend(cmd, head); err != nil {
			return err
		}

		var closed *models.Entry
		if head.Open != nil {
			c := head.Open.Closed(cmd.At)
			closed = &c
		}
		entry = models.Entry{
			ID:         id.NewEntryID(),
			DriverID:   cmd.DriverID,
			Sequence:   head.Sequence + 1,
			Status:     cmd.Status,
			StartTime:  cmd.At,
			Metadata:   cmd.Metadata,
			DataSource: cmd.Source,
			RecordedBy: cmd.RecordedBy,
			RecordedAt: now,
		}
		if err := s.store.Commit(ctx, cmd.DriverID, head.Sequence, closed, entry); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return conflict(cmd.DriverID, "concurrent_write", "ledger head moved during append").
					WithDetail("expected_sequence", itoa(head.Sequence))
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit entry")
		}
		details := map[string]string{
			"status":   string(entry.Status),
			"sequence": itoa(entry.Sequence),
			"at":       entry.StartTime.Format(time.RFC3339Nano),
		}
		if closed != nil {
			details["closed_entry_id"] = closed.ID.String()
		}
		return s.emit(ctx, audit.Event{
			Action:   audit.ActionEntryAppended,
			DriverID: cmd.DriverID,
			ActorID:  cmd.RecordedBy,
			Subject:  entry.ID.String(),
			Decision: string(entry.DataSource),
			Details:  details,
		})
	})
	if err != nil {
		if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncAppendConflict(dErrors.Details(err)["reason"])
		}
		s.logger.WarnContext(ctx, "append rejected",
			"driver_id", cmd.DriverID,
			"status", cmd.Status,
			"at", cmd.At,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(tracing.AttrEntryID.String(entry.ID.String()), tracing.AttrSequence.Int64(entry.Sequence))
	if s.metrics != nil {
		s.metrics.IncAppended(string(entry.Status))
		s.metrics.ObserveAppend(start)
	}
	s.logger.InfoContext(ctx, "duty status appended",
		"driver_id", entry.DriverID,
		"entry_id", entry.ID.String(),
		"status", entry.Status,
		"sequence", entry.Sequence,
	)
	return &entry, nil
}

func checkAppend(cmd AppendCommand, head models.Head) error {
	if cmd.ExpectedSequence != nil && *cmd.ExpectedSequence != head.Sequence {
		return conflict(cmd.DriverID, "sequence_mismatch", "ledger head is not at the expected sequence").
			WithDetail("expected_sequence", itoa(*cmd.ExpectedSequence)).
			WithDetail("current_sequence", itoa(head.Sequence))
	}
	if head.Sequence == 0 && !cmd.Status.IsValidInitial() {
		return conflict(cmd.DriverID, "invalid_initial_status", "a driver's first entry cannot be "+string(cmd.Status)).
			WithDetail("status", string(cmd.Status))
	}
	if head.Open != nil && !cmd.At.After(head.Open.StartTime) {
		return conflict(cmd.DriverID, "out_of_order", "status change does not follow the open entry").
			WithDetail("at", cmd.At.Format(time.RFC3339Nano)).
			WithDetail("open_since", head.Open.StartTime.Format(time.RFC3339Nano)).
			WithDetail("entry_id", head.Open.ID.String())
	}
	return nil
}

// Certify attests a closed entry. Certification happens once.
func (s *Service) Certify(ctx context.Context, entryID id.EntryID, actor id.ActorID) (_ *models.Entry, err error) {
	ctx, span := tracing.Start(ctx, "ledger.Certify", tracing.AttrEntryID.String(entryID.String()))
	defer func() { tracing.End(span, err) }()

	if actor == "" {
		actor = requestcontext.ActorID(ctx)
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var certified models.Entry
	err = s.Serialize(ctx, entry.DriverID, func(ctx context.Context) error {
		c, err := s.certifyLocked(ctx, entryID, actor)
		if err != nil {
			return err
		}
		certified = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddCertified(1)
	}
	s.logger.InfoContext(ctx, "entry certified",
		"driver_id", certified.DriverID,
		"entry_id", entryID.String(),
		"certified_by", actor,
	)
	return &certified, nil
}

func (s *Service) certifyLocked(ctx context.Context, entryID id.EntryID, actor id.ActorID) (*models.Entry, error) {
	entry, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		return nil, notFound(err, entryID)
	}
	if entry.IsCertified() {
		return nil, alreadyCertified(entry)
	}
	if entry.IsOpen() {
		return nil, dErrors.New(dErrors.CodeOpenEntry, "open entries cannot be certified").
			WithDetail("entry_id", entryID.String()).
			WithDetail("driver_id", string(entry.DriverID))
	}
	now := requestcontext.Now(ctx)
	if err := s.store.MarkCertified(ctx, entryID, now, actor); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, alreadyCertified(entry)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to certify entry")
	}
	if err := s.emit(ctx, audit.Event{
		Action:   audit.ActionEntryCertified,
		DriverID: entry.DriverID,
		ActorID:  actor,
		Subject:  entryID.String(),
	}); err != nil {
		return nil, err
	}
	entry.CertifiedAt = &now
	entry.CertifiedBy = actor
	return entry, nil
}

// CertifyDay certifies every closed, uncertified entry that starts on the
// local day containing day. It returns the entries it certified.
func (s *Service) CertifyDay(ctx context.Context, driverID id.DriverID, day time.Time, loc *time.Location, actor id.ActorID) ([]models.Entry, error) {
	if actor == "" {
		actor = requestcontext.ActorID(ctx)
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	var out []models.Entry
	err := s.Serialize(ctx, driverID, func(ctx context.Context) error {
		out = out[:0]
		var pending []id.EntryID
		for e, err := range s.store.Scan(ctx, driverID, from, to) {
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan entries")
			}
			if e.IsOpen() || e.IsCertified() || e.StartTime.Before(from) || !e.StartTime.Before(to) {
				continue
			}
			pending = append(pending, e.ID)
		}
		for _, entryID := range pending {
			c, err := s.certifyLocked(ctx, entryID, actor)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddCertified(len(out))
	}
	s.logger.InfoContext(ctx, "day certified",
		"driver_id", driverID,
		"day", from.Format(time.DateOnly),
		"entries", len(out),
	)
	return out, nil
}

// ListEntries lazily yields the driver's entries intersecting [from, to) in
// sequence order. A zero to means unbounded.
func (s *Service) ListEntries(ctx context.Context, driverID id.DriverID, from, to time.Time) iter.Seq2[models.Entry, error] {
	return s.store.Scan(ctx, driverID, from, to)
}

// Entries collects ListEntries.
func (s *Service) Entries(ctx context.Context, driverID id.DriverID, from, to time.Time) ([]models.Entry, error) {
	var out []models.Entry
	for e, err := range s.ListEntries(ctx, driverID, from, to) {
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entries").
				WithDetail("driver_id", string(driverID))
		}
		out = append(out, e)
	}
	return out, nil
}

// CurrentEntry returns the open entry, or nil when the driver has none.
func (s *Service) CurrentEntry(ctx context.Context, driverID id.DriverID) (*models.Entry, error) {
	head, err := s.store.Head(ctx, driverID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger head")
	}
	return head.Open, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	e, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		return nil, notFound(err, entryID)
	}
	return e, nil
}

// SupersededBy returns the overlay that replaced entryID, or nil.
func (s *Service) SupersededBy(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	e, err := s.store.SupersededBy(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up overlays")
	}
	return e, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, event)
}

func conflict(driverID id.DriverID, reason, msg string) *dErrors.Error {
	return dErrors.New(dErrors.CodeConflict, msg).
		WithDetail("driver_id", string(driverID)).
		WithDetail("reason", reason)
}

func alreadyCertified(e *models.Entry) error {
	err := dErrors.New(dErrors.CodeAlreadyCertified, "entry is already certified").
		WithDetail("entry_id", e.ID.String()).
		WithDetail("driver_id", string(e.DriverID))
	if e.CertifiedAt != nil {
		err = err.WithDetail("certified_at", e.CertifiedAt.Format(time.RFC3339Nano))
	}
	return err
}

func notFound(err error, entryID id.EntryID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "entry not found").WithDetail("entry_id", entryID.String())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entry")
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
