package calculator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fleetops/internal/hos/ledger"
	ledgerstore "fleetops/internal/hos/ledger/store"
	"fleetops/internal/hos/models"
	"fleetops/internal/hos/ruleset"
	"fleetops/internal/hos/violation"
	violationstore "fleetops/internal/hos/violation/store"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/requestcontext"
)

const driver id.DriverID = "driver-1"

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type countingMetrics struct {
	computed int
	failed   int
}

func (m *countingMetrics) ObserveCompute(time.Time) { m.computed++ }
func (m *countingMetrics) IncComputeFailure()       { m.failed++ }

type failingLedger struct{ err error }

func (f failingLedger) Entries(context.Context, id.DriverID, time.Time, time.Time) ([]models.Entry, error) {
	return nil, f.err
}

type CalculatorSuite struct {
	suite.Suite
	ctx        context.Context
	ledger     *ledger.Service
	violations *violation.Service
	metrics    *countingMetrics
	calc       *Calculator
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), at(23, 0))
	s.ledger = ledger.NewService(ledgerstore.NewInMemory())
	s.violations = violation.NewService(violationstore.NewInMemory())
	s.metrics = &countingMetrics{}
	s.calc = New(s.ledger, ruleset.NewHolder(ruleset.MustBuiltin()),
		WithViolations(s.violations),
		WithMetrics(s.metrics),
		WithDefaultRuleSet(ruleset.KeyUSInterstate),
	)
}

func (s *CalculatorSuite) append(status models.DutyStatus, t time.Time) {
	_, err := s.ledger.Append(s.ctx, ledger.AppendCommand{DriverID: driver, Status: status, At: t, RecordedBy: "driver-1"})
	s.Require().NoError(err)
}

func (s *CalculatorSuite) compute(now time.Time) *models.ComplianceSnapshot {
	snap, err := s.calc.Compute(s.ctx, Request{DriverID: driver, Now: now})
	s.Require().NoError(err)
	return snap
}

func kinds(vs []models.Violation) []models.ViolationKind {
	out := make([]models.ViolationKind, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Kind)
	}
	return out
}

func (s *CalculatorSuite) TestWithinLimits() {
	s.append(models.StatusOffDuty, at(-6, 0))
	s.append(models.StatusDriving, at(6, 0))
	s.append(models.StatusOffDuty, at(12, 30))

	snap := s.compute(at(13, 0))

	drive := snap.Windows[models.WindowDailyDrive]
	s.Equal(6*time.Hour+30*time.Minute, drive.Used)
	s.Equal(4*time.Hour+30*time.Minute, drive.Remaining)
	s.Equal(7*time.Hour, snap.Windows[models.WindowShift].Used)
	s.Empty(snap.Violations)
	s.True(snap.CanWork)
	s.True(snap.CanDrive)
	s.Equal(models.StatusOffDuty, snap.CurrentStatus)
	s.Equal(ruleset.KeyUSInterstate, snap.RuleSetKey)
	s.Equal("2020", snap.RuleSetVersion)
	s.Equal(1, s.metrics.computed)
}

func (s *CalculatorSuite) TestDailyDriveExceeded() {
	s.append(models.StatusOffDuty, at(-6, 0))
	s.append(models.StatusDriving, at(6, 0))
	s.append(models.StatusOffDuty, at(10, 0))
	s.append(models.StatusDriving, at(10, 30))

	now := at(17, 31)
	snap := s.compute(now)

	s.Require().Len(snap.Violations, 1)
	v := snap.Violations[0]
	s.Equal(models.ViolationDailyDriving, v.Kind)
	s.Equal(models.SeverityCritical, v.Severity)
	s.Equal(at(17, 30), v.DetectedAt)
	s.False(snap.CanDrive)
	s.False(snap.CanWork)
	s.Zero(snap.Windows[models.WindowDailyDrive].Remaining)

	s.Run("compute is idempotent", func() {
		again := s.compute(now)
		s.Equal(snap.Violations, again.Violations)
		s.Equal(snap.Windows, again.Windows)
		s.Equal(snap.CanDrive, again.CanDrive)
	})

	s.Run("check records each violation once", func() {
		_, recorded, err := s.calc.Check(s.ctx, Request{DriverID: driver, Now: now})
		s.Require().NoError(err)
		s.Len(recorded, 1)

		_, recorded, err = s.calc.Check(s.ctx, Request{DriverID: driver, Now: now})
		s.Require().NoError(err)
		s.Empty(recorded)
	})

	s.Run("resolution is carried into later snapshots", func() {
		resolved, err := s.calc.ResolveViolation(s.ctx, v.ID, "safety-1", "reviewed")
		s.Require().NoError(err)
		s.True(resolved.Resolved)

		after := s.compute(now)
		s.Require().Len(after.Violations, 1)
		s.True(after.Violations[0].Resolved)
		s.True(after.CanWork)
		s.False(after.CanDrive, "drive window is still exhausted")
	})
}

func (s *CalculatorSuite) TestBreakRequired() {
	s.append(models.StatusOffDuty, at(-6, 0))
	s.append(models.StatusDriving, at(6, 0))

	before, recorded, err := s.calc.Check(s.ctx, Request{DriverID: driver, Now: at(14, 10)})
	s.Require().NoError(err)
	s.Contains(kinds(before.Violations), models.ViolationRestBreak)
	s.NotEmpty(recorded)
	s.False(before.CanDrive)

	s.append(models.StatusOffDuty, at(14, 10))
	s.append(models.StatusDriving, at(14, 45))

	after := s.compute(at(15, 0))
	s.NotContains(kinds(after.Violations), models.ViolationRestBreak)
	s.Equal(15*time.Minute, after.DriveSinceBreak)
	s.True(after.CanDrive)

	stored, err := s.violations.List(s.ctx, models.ViolationFilter{DriverID: driver, Kinds: []models.ViolationKind{models.ViolationRestBreak}})
	s.Require().NoError(err)
	s.NotEmpty(stored)
	for _, v := range stored {
		s.False(v.Resolved)
	}
}

func (s *CalculatorSuite) TestNoEntries() {
	snap := s.compute(at(9, 0))
	s.Empty(snap.Violations)
	s.Zero(snap.Windows[models.WindowDailyDrive].Used)
	s.Empty(snap.CurrentStatus)
	s.True(snap.CanDrive)
}

func (s *CalculatorSuite) TestFailsClosed() {
	s.Run("unknown rule set", func() {
		snap, err := s.calc.Compute(s.ctx, Request{DriverID: driver, RuleSetKey: "nowhere", Now: at(9, 0)})
		s.Nil(snap)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownRuleSet), "got %v", err)
	})

	s.Run("ledger unavailable", func() {
		metrics := &countingMetrics{}
		calc := New(failingLedger{err: errors.New("connection reset")}, ruleset.NewHolder(ruleset.MustBuiltin()), WithMetrics(metrics))

		snap, err := calc.Compute(s.ctx, Request{DriverID: driver, Now: at(9, 0)})
		s.Nil(snap)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)
		s.Equal(1, metrics.failed)
		s.Zero(metrics.computed)
	})

	s.Run("driver required", func() {
		_, err := s.calc.Compute(s.ctx, Request{Now: at(9, 0)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *CalculatorSuite) TestCheckRequiresViolationStore() {
	calc := New(s.ledger, ruleset.NewHolder(ruleset.MustBuiltin()))
	_, _, err := calc.Check(s.ctx, Request{DriverID: driver, Now: at(9, 0)})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
