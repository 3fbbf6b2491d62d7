package window

import (
	"time"

	"fleetops/internal/hos/models"
)

// Aggregator computes window totals in a driver's home-terminal time zone.
type Aggregator struct {
	loc *time.Location
}

// New returns an Aggregator for loc; nil means UTC.
func New(loc *time.Location) Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return Aggregator{loc: loc}
}

func (a Aggregator) Location() *time.Location { return a.loc }

// DayStart returns local midnight of the day containing t.
func (a Aggregator) DayStart(t time.Time) time.Time {
	y, m, d := t.In(a.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
}

// DailyDrive sums DRIVING time on now's local day.
func (a Aggregator) DailyDrive(entries []models.Entry, now time.Time) time.Duration {
	return total(clip(Timeline(entries, now), a.DayStart(now), now, isDriving))
}

// DailyOnDuty sums ON_DUTY and DRIVING time on now's local day.
func (a Aggregator) DailyOnDuty(entries []models.Entry, now time.Time) time.Duration {
	return total(clip(Timeline(entries, now), a.DayStart(now), now, isOnDuty))
}

// ShiftSpan measures the current shift up to now.
func (a Aggregator) ShiftSpan(entries []models.Entry, now time.Time, rs models.RuleSet) time.Duration {
	start := shiftStart(Timeline(entries, now), rs)
	if start == nil {
		return 0
	}
	return now.Sub(*start)
}

// CycleUsed sums on-duty time over the trailing cycle window.
func (a Aggregator) CycleUsed(entries []models.Entry, now time.Time, rs models.RuleSet) time.Duration {
	segs := Timeline(entries, now)
	return total(clip(segs, a.cycleStart(segs, now, rs), now, isOnDuty))
}

// DriveSinceBreak sums driving since the last qualifying break.
func (a Aggregator) DriveSinceBreak(entries []models.Entry, now time.Time, rs models.RuleSet) time.Duration {
	segs := Timeline(entries, now)
	return total(clip(segs, breakEnd(segs, rs), now, isDriving))
}

// DayTotal is the time a status class accumulated on one local day.
type DayTotal struct {
	Day   time.Time
	Total time.Duration
}

// PerDay splits matching time at local midnights and totals it per day, oldest
// first. Days without matching time are omitted.
func (a Aggregator) PerDay(entries []models.Entry, now time.Time, pred func(models.DutyStatus) bool) []DayTotal {
	segs := Timeline(entries, now)
	if len(segs) == 0 {
		return nil
	}
	var out []DayTotal
	for day := a.DayStart(segs[0].Start); day.Before(now); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		if d := total(clip(segs, day, next, pred)); d > 0 {
			out = append(out, DayTotal{Day: day, Total: d})
		}
	}
	return out
}

// Aggregates is every window total for one instant, plus the instants at
// which each limit of the rule set was crossed.
type Aggregates struct {
	Now             time.Time
	Current         *Segment
	DayStart        time.Time
	DailyDrive      time.Duration
	DailyOnDuty     time.Duration
	ShiftStart      *time.Time
	ShiftSpan       time.Duration
	CycleStart      time.Time
	CycleUsed       time.Duration
	BreakEnd        time.Time
	DriveSinceBreak time.Duration

	DailyDriveCrossing  *Crossing
	DailyOnDutyCrossing *Crossing
	ShiftCrossing       *Crossing
	CycleCrossing       *Crossing
	BreakCrossing       *Crossing
	// BreakEscalation is where driving had gone BreakEscalationGrace past
	// the break trigger.
	BreakEscalation *Crossing
}

// BreakEscalationGrace is the driving past the break trigger after which the
// missed break counts as driven through rather than just reached.
const BreakEscalationGrace = time.Minute

// Aggregate resolves the timeline once and computes every window.
func (a Aggregator) Aggregate(entries []models.Entry, now time.Time, rs models.RuleSet) Aggregates {
	segs := Timeline(entries, now)
	ag := Aggregates{Now: now, DayStart: a.DayStart(now)}

	if n := len(segs); n > 0 && segs[n-1].End.Equal(now) {
		cur := segs[n-1]
		ag.Current = &cur
	}

	drive := clip(segs, ag.DayStart, now, isDriving)
	ag.DailyDrive = total(drive)
	ag.DailyDriveCrossing = crossing(drive, rs.DriveLimit, true)

	onDuty := clip(segs, ag.DayStart, now, isOnDuty)
	ag.DailyOnDuty = total(onDuty)
	ag.DailyOnDutyCrossing = crossing(onDuty, rs.OnDutyLimit, true)

	ag.ShiftStart = shiftStart(segs, rs)
	if ag.ShiftStart != nil {
		ag.ShiftSpan = now.Sub(*ag.ShiftStart)
		if ag.ShiftSpan > rs.ShiftLimit {
			at := ag.ShiftStart.Add(rs.ShiftLimit)
			ag.ShiftCrossing = &Crossing{At: at, EntryID: segmentAt(segs, at).EntryID}
		}
	}

	ag.CycleStart = a.cycleStart(segs, now, rs)
	cycle := clip(segs, ag.CycleStart, now, isOnDuty)
	ag.CycleUsed = total(cycle)
	ag.CycleCrossing = crossing(cycle, rs.CycleLimit, true)

	ag.BreakEnd = breakEnd(segs, rs)
	sinceBreak := clip(segs, ag.BreakEnd, now, isDriving)
	ag.DriveSinceBreak = total(sinceBreak)
	if rs.BreakRuleEnabled() {
		ag.BreakCrossing = crossing(sinceBreak, rs.BreakTriggerDriveTime, false)
		ag.BreakEscalation = crossing(sinceBreak, rs.BreakTriggerDriveTime+BreakEscalationGrace, false)
	}
	return ag
}

// shiftStart finds the first on-duty segment after the most recent qualifying
// rest. Without a qualifying rest in the horizon the shift is taken to start
// at the earliest segment. Nil means the driver is off shift.
func shiftStart(segs []Segment, rs models.RuleSet) *time.Time {
	var restEnd time.Time
	found := false
	rests := runs(segs, isRest)
	for i := len(rests) - 1; i >= 0; i-- {
		if rests[i].duration() >= rs.MinOffDutyRest {
			restEnd = rests[i].end
			found = true
			break
		}
	}
	for _, s := range segs {
		if !s.Status.IsOnDuty() || s.Start.Before(restEnd) {
			continue
		}
		start := s.Start
		if !found {
			start = segs[0].Start
		}
		return &start
	}
	return nil
}

// cycleStart is local midnight cycleWindowDays-1 days before now, moved
// forward past the latest cycle-restart rest inside the window.
func (a Aggregator) cycleStart(segs []Segment, now time.Time, rs models.RuleSet) time.Time {
	days := rs.CycleWindowDays
	if days < 1 {
		days = 1
	}
	start := a.DayStart(now).AddDate(0, 0, -(days - 1))
	if rs.CycleResetRest <= 0 {
		return start
	}
	rests := runs(segs, isRest)
	for i := len(rests) - 1; i >= 0; i-- {
		r := rests[i]
		if !r.end.After(start) {
			break
		}
		if r.duration() >= rs.CycleResetRest {
			return r.end
		}
	}
	return start
}

// breakEnd returns the end of the latest non-driving run long enough to count
// as a break, or the zero time when none exists in the horizon.
func breakEnd(segs []Segment, rs models.RuleSet) time.Time {
	if !rs.BreakRuleEnabled() {
		return time.Time{}
	}
	nonDriving := runs(segs, isNotDriving)
	for i := len(nonDriving) - 1; i >= 0; i-- {
		if nonDriving[i].duration() >= rs.RequiredBreakDuration {
			return nonDriving[i].end
		}
	}
	return time.Time{}
}

// segmentAt returns the segment covering t, or the last one starting before t.
func segmentAt(segs []Segment, t time.Time) Segment {
	var out Segment
	for _, s := range segs {
		if s.Start.After(t) {
			break
		}
		out = s
		if s.End.After(t) {
			break
		}
	}
	return out
}
