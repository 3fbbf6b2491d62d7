// Package calculator assembles a driver's compliance snapshot from the
// ledger, the rule-set catalog and the stored violation record.
//
// Compute is read-only and safe to call concurrently for any number of
// drivers. Check is Compute followed by persisting newly detected
// violations.
package calculator

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetops/internal/hos/models"
	"fleetops/internal/hos/violation"
	"fleetops/internal/hos/window"
	"fleetops/internal/platform/tracing"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

// Ledger reads committed entries.
type Ledger interface {
	Entries(ctx context.Context, driverID id.DriverID, from, to time.Time) ([]models.Entry, error)
}

// RuleSets resolves the limit table in force at an instant.
type RuleSets interface {
	Effective(key string, at time.Time) (models.RuleSet, error)
}

// Violations is the stored violation record.
type Violations interface {
	Record(ctx context.Context, violations []models.Violation) ([]models.Violation, error)
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error)
	Resolve(ctx context.Context, violationID id.ViolationID, actor id.ActorID, note string) (*models.Violation, error)
}

type Metrics interface {
	ObserveCompute(start time.Time)
	IncComputeFailure()
}

type Calculator struct {
	ledger         Ledger
	ruleSets       RuleSets
	violations     Violations
	logger         *slog.Logger
	metrics        Metrics
	loc            *time.Location
	defaultRuleSet string
	now            func() time.Time
}

type Option func(*Calculator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

// WithViolations lets snapshots carry the stored resolution state and
// enables Check and ResolveViolation.
func WithViolations(v Violations) Option {
	return func(c *Calculator) { c.violations = v }
}

// WithLocation sets the home-terminal zone that defines the driver's day.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithDefaultRuleSet is used when a request names no rule set.
func WithDefaultRuleSet(key string) Option {
	return func(c *Calculator) { c.defaultRuleSet = key }
}

func New(l Ledger, rs RuleSets, opts ...Option) *Calculator {
	c := &Calculator{
		ledger:         l,
		ruleSets:       rs,
		logger:         slog.Default(),
		loc:            time.UTC,
		defaultRuleSet: "us-interstate",
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request names the driver, rule set and evaluation instant. A nil Location
// uses the calculator's home terminal.
type Request struct {
	DriverID   id.DriverID
	RuleSetKey string
	Now        time.Time
	Location   *time.Location
}

// Compute evaluates the driver at req.Now. On any failure it returns an
// error and no snapshot: callers must treat the driver as unable to drive.
func (c *Calculator) Compute(ctx context.Context, req Request) (_ *models.ComplianceSnapshot, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "calculator.Compute",
		tracing.AttrDriverID.String(string(req.DriverID)),
		tracing.AttrRuleSet.String(req.RuleSetKey),
	)
	defer func() {
		tracing.End(span, err)
		if c.metrics == nil {
			return
		}
		if err != nil {
			c.metrics.IncComputeFailure()
			return
		}
		c.metrics.ObserveCompute(start)
	}()

	if req.DriverID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "driver_id is required")
	}
	if req.RuleSetKey == "" {
		req.RuleSetKey = c.defaultRuleSet
	}
	if req.Now.IsZero() {
		req.Now = c.now()
	}
	loc := req.Location
	if loc == nil {
		loc = c.loc
	}

	rs, err := c.ruleSets.Effective(req.RuleSetKey, req.Now)
	if err != nil {
		return nil, err
	}
	agg := window.New(loc)
	from := horizonStart(agg, req.Now, rs)

	var (
		entries []models.Entry
		stored  []models.Violation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = c.ledger.Entries(gctx, req.DriverID, from, req.Now)
		return err
	})
	if c.violations != nil {
		g.Go(func() error {
			var err error
			stored, err = c.violations.List(gctx, models.ViolationFilter{DriverID: req.DriverID, Since: from})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.ErrorContext(ctx, "compliance status undetermined",
			"driver_id", req.DriverID,
			"rule_set", rs.Key,
			"error", err,
		)
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "unable to determine compliance status").
			WithDetail("driver_id", string(req.DriverID))
	}

	ag := agg.Aggregate(entries, req.Now, rs)
	detector := violation.NewDetector(agg)
	detected := mergeResolution(detector.Evaluate(req.DriverID, ag, rs), stored)
	nextBreak, nextRest := detector.Predict(ag, rs)

	snap := &models.ComplianceSnapshot{
		DriverID:       req.DriverID,
		RuleSetKey:     rs.Key,
		RuleSetVersion: rs.Version,
		AsOf:           req.Now,
		Windows: map[models.WindowName]models.WindowStatus{
			models.WindowDailyDrive:  models.NewWindowStatus(ag.DailyDrive, rs.DriveLimit),
			models.WindowDailyOnDuty: models.NewWindowStatus(ag.DailyOnDuty, rs.OnDutyLimit),
			models.WindowShift:       models.NewWindowStatus(ag.ShiftSpan, rs.ShiftLimit),
			models.WindowCycle:       models.NewWindowStatus(ag.CycleUsed, rs.CycleLimit),
		},
		DriveSinceBreak:     ag.DriveSinceBreak,
		Violations:          detected,
		NextBreakRequiredAt: nextBreak,
		NextRestRequiredAt:  nextRest,
		ComputedAt:          c.now(),
	}
	if ag.Current != nil {
		snap.CurrentStatus = ag.Current.Status
	}
	snap.CanWork, snap.CanDrive = permissions(snap, ag, rs)

	span.SetAttributes(
		tracing.AttrViolations.Int(len(detected)),
		tracing.AttrCanDrive.Bool(snap.CanDrive),
	)
	return snap, nil
}

// horizonStart reaches back one day further than the cycle window so the
// shift and cycle-restart rests preceding it are visible.
func horizonStart(agg window.Aggregator, now time.Time, rs models.RuleSet) time.Time {
	return agg.DayStart(now).AddDate(0, 0, -rs.CycleWindowDays)
}

func permissions(snap *models.ComplianceSnapshot, ag window.Aggregates, rs models.RuleSet) (canWork, canDrive bool) {
	if snap.HasCritical() {
		return false, false
	}
	for _, name := range []models.WindowName{models.WindowDailyOnDuty, models.WindowShift, models.WindowCycle} {
		if snap.Windows[name].Remaining <= 0 {
			return false, false
		}
	}
	canWork = true
	canDrive = snap.Windows[models.WindowDailyDrive].Remaining > 0
	if rs.BreakRuleEnabled() && ag.DriveSinceBreak >= rs.BreakTriggerDriveTime {
		canDrive = false
	}
	return canWork, canDrive
}

// mergeResolution carries the stored resolution onto re-detected violations.
func mergeResolution(detected, stored []models.Violation) []models.Violation {
	if len(stored) == 0 {
		return detected
	}
	for i := range detected {
		idx := slices.IndexFunc(stored, func(v models.Violation) bool { return v.ID == detected[i].ID })
		if idx >= 0 && stored[idx].Resolved {
			detected[i] = stored[idx]
		}
	}
	return detected
}

// Check computes the snapshot and persists violations not stored yet. It
// returns the snapshot and the newly recorded violations. A persistence
// failure is returned as an error.
func (c *Calculator) Check(ctx context.Context, req Request) (*models.ComplianceSnapshot, []models.Violation, error) {
	if c.violations == nil {
		return nil, nil, dErrors.New(dErrors.CodeInternal, "violation store is not configured")
	}
	snap, err := c.Compute(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	var pending []models.Violation
	for _, v := range snap.Violations {
		if !v.Resolved {
			pending = append(pending, v)
		}
	}
	recorded, err := c.violations.Record(ctx, pending)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to persist detected violations",
			"driver_id", req.DriverID,
			"violations", len(pending),
			"error", err,
		)
		return nil, nil, err
	}
	return snap, recorded, nil
}

// ResolveViolation records the authorized resolution of a stored violation.
func (c *Calculator) ResolveViolation(ctx context.Context, violationID id.ViolationID, actor id.ActorID, note string) (*models.Violation, error) {
	if c.violations == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "violation store is not configured")
	}
	return c.violations.Resolve(ctx, violationID, actor, note)
}
