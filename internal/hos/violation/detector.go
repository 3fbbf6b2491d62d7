// Package violation compares window aggregates against a rule set, projects
// when the next break and rest will be required, and keeps the record of
// detected violations.
package violation

import (
	"cmp"
	"slices"
	"time"

	"fleetops/internal/hos/models"
	"fleetops/internal/hos/window"
	id "fleetops/pkg/domain"
)

// Detector evaluates limits. It holds no state besides the aggregator's home
// terminal zone and is safe for concurrent use.
type Detector struct {
	agg window.Aggregator
}

func NewDetector(agg window.Aggregator) *Detector {
	return &Detector{agg: agg}
}

// Evaluate returns the violations present in ag, ordered by the instant each
// limit was crossed. Returned violations are new values; persisting them and
// leaving previously stored ones alone is the caller's job.
func (d *Detector) Evaluate(driverID id.DriverID, ag window.Aggregates, rs models.RuleSet) []models.Violation {
	var out []models.Violation
	add := func(kind models.ViolationKind, sev models.Severity, c *window.Crossing, used, limit time.Duration) {
		if c == nil {
			return
		}
		out = append(out, models.NewViolation(driverID, kind, sev, rs.Key, c.EntryID, c.At, used, limit))
	}

	if ag.DailyDrive > rs.DriveLimit {
		add(models.ViolationDailyDriving, models.SeverityCritical, ag.DailyDriveCrossing, ag.DailyDrive, rs.DriveLimit)
	}
	if ag.DailyOnDuty > rs.OnDutyLimit {
		add(models.ViolationOnDuty, models.SeverityCritical, ag.DailyOnDutyCrossing, ag.DailyOnDuty, rs.OnDutyLimit)
	}
	if ag.ShiftSpan > rs.ShiftLimit {
		add(models.ViolationShift, models.SeverityCritical, ag.ShiftCrossing, ag.ShiftSpan, rs.ShiftLimit)
	}
	if ag.CycleUsed > rs.CycleLimit {
		add(models.ViolationCycle, models.SeverityCritical, ag.CycleCrossing, ag.CycleUsed, rs.CycleLimit)
	}
	if rs.BreakRuleEnabled() && ag.DriveSinceBreak >= rs.BreakTriggerDriveTime {
		add(models.ViolationRestBreak, models.SeverityWarning, ag.BreakCrossing, ag.DriveSinceBreak, rs.BreakTriggerDriveTime)
		// Driving on past the trigger escalates, stamped where it did.
		add(models.ViolationRestBreak, models.SeverityCritical, ag.BreakEscalation, ag.DriveSinceBreak, rs.BreakTriggerDriveTime)
	}

	slices.SortStableFunc(out, func(a, b models.Violation) int {
		if c := a.DetectedAt.Compare(b.DetectedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity))
	})
	return out
}

func severityRank(s models.Severity) int {
	if s == models.SeverityCritical {
		return 1
	}
	return 0
}
