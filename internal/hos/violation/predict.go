package violation

import (
	"time"

	"fleetops/internal/hos/models"
	"fleetops/internal/hos/window"
)

// PredictNextBreak projects when the driver must take a break if they keep
// driving without one. Nil when the driver is not currently driving or the
// rule set has no break rule; an overdue break is due now.
func (d *Detector) PredictNextBreak(entries []models.Entry, rs models.RuleSet, now time.Time) *time.Time {
	return nextBreak(d.agg.Aggregate(entries, now, rs), rs)
}

// PredictNextRest projects when the driver must stop for a qualifying rest if
// they continue in their current status. Nil while resting.
func (d *Detector) PredictNextRest(entries []models.Entry, rs models.RuleSet, now time.Time) *time.Time {
	return d.nextRest(d.agg.Aggregate(entries, now, rs), rs)
}

// Predict runs both projections over an existing aggregate.
func (d *Detector) Predict(ag window.Aggregates, rs models.RuleSet) (nextBreakAt, nextRestAt *time.Time) {
	return nextBreak(ag, rs), d.nextRest(ag, rs)
}

func nextBreak(ag window.Aggregates, rs models.RuleSet) *time.Time {
	if !rs.BreakRuleEnabled() || ag.Current == nil || ag.Current.Status != models.StatusDriving {
		return nil
	}
	return notBefore(ag.Now.Add(rs.BreakTriggerDriveTime-ag.DriveSinceBreak), ag.Now)
}

func (d *Detector) nextRest(ag window.Aggregates, rs models.RuleSet) *time.Time {
	if ag.Current == nil || !ag.Current.Status.IsOnDuty() {
		return nil
	}
	var earliest time.Time
	consider := func(t time.Time) {
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}

	if ag.ShiftStart != nil {
		consider(ag.ShiftStart.Add(rs.ShiftLimit))
	}
	consider(ag.Now.Add(rs.CycleLimit - ag.CycleUsed))

	// Daily totals reset at local midnight; a projection past it does not bind.
	midnight := d.agg.DayStart(ag.Now).AddDate(0, 0, 1)
	daily := []time.Time{ag.Now.Add(rs.OnDutyLimit - ag.DailyOnDuty)}
	if ag.Current.Status == models.StatusDriving {
		daily = append(daily, ag.Now.Add(rs.DriveLimit-ag.DailyDrive))
	}
	for _, t := range daily {
		if t.Before(midnight) {
			consider(t)
		}
	}
	return notBefore(earliest, ag.Now)
}

func notBefore(t, floor time.Time) *time.Time {
	if t.Before(floor) {
		t = floor
	}
	return &t
}
