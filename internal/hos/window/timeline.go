// Package window turns a driver's ledger entries into rolling time-window
// totals as of an instant.
//
// Ledger entries are never split or rewritten. Aggregation first resolves the
// effective timeline: entries superseded by an approved amendment are dropped,
// EDITED overlays take precedence over whatever they cover, later overlays win
// over earlier ones, and the open entry is measured up to now. Day windows are
// computed in the driver's home-terminal time zone and split segments at local
// midnight.
package window

import (
	"slices"
	"time"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
)

// Segment is one effective, non-overlapping interval of the timeline.
type Segment struct {
	EntryID id.EntryID
	Status  models.DutyStatus
	Start   time.Time
	End     time.Time
}

func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }

type interval struct{ start, end time.Time }

// subtract returns the parts of iv not covered by covered (sorted, disjoint).
func subtract(iv interval, covered []interval) []interval {
	out := []interval{iv}
	for _, c := range covered {
		var next []interval
		for _, p := range out {
			if !c.end.After(p.start) || !c.start.Before(p.end) {
				next = append(next, p)
				continue
			}
			if c.start.After(p.start) {
				next = append(next, interval{p.start, c.start})
			}
			if c.end.Before(p.end) {
				next = append(next, interval{c.end, p.end})
			}
		}
		out = next
		if len(out) == 0 {
			break
		}
	}
	return out
}

func insertCovered(covered []interval, iv interval) []interval {
	covered = append(covered, iv)
	slices.SortFunc(covered, func(a, b interval) int { return a.start.Compare(b.start) })
	merged := covered[:1]
	for _, c := range covered[1:] {
		last := &merged[len(merged)-1]
		if !c.start.After(last.end) {
			if c.end.After(last.end) {
				last.end = c.end
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// Timeline resolves entries into the effective timeline as of now, sorted by
// start. Time at or after now is ignored.
func Timeline(entries []models.Entry, now time.Time) []Segment {
	superseded := make(map[id.EntryID]bool)
	for _, e := range entries {
		if e.AmendsEntry != nil {
			superseded[*e.AmendsEntry] = true
		}
	}

	candidates := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if superseded[e.ID] || !e.StartTime.Before(now) {
			continue
		}
		candidates = append(candidates, e)
	}
	// Overlays first, newest first; base entries keep ledger order.
	slices.SortStableFunc(candidates, func(a, b models.Entry) int {
		ao, bo := a.IsOverlay(), b.IsOverlay()
		switch {
		case ao && !bo:
			return -1
		case !ao && bo:
			return 1
		case ao && bo:
			return int(b.Sequence - a.Sequence)
		}
		return int(a.Sequence - b.Sequence)
	})

	var covered []interval
	segments := make([]Segment, 0, len(candidates))
	for _, e := range candidates {
		end := e.EndOr(now)
		if end.After(now) {
			end = now
		}
		if !end.After(e.StartTime) {
			continue
		}
		iv := interval{e.StartTime, end}
		for _, p := range subtract(iv, covered) {
			segments = append(segments, Segment{EntryID: e.ID, Status: e.Status, Start: p.start, End: p.end})
		}
		covered = insertCovered(covered, iv)
	}
	slices.SortFunc(segments, func(a, b Segment) int { return a.Start.Compare(b.Start) })
	return segments
}

// run is a maximal contiguous stretch of segments sharing a class.
type run struct {
	start, end time.Time
}

func (r run) duration() time.Duration { return r.end.Sub(r.start) }

// runs groups contiguous segments matching pred. A gap in the timeline ends a
// run: unaccounted time never counts as rest.
func runs(segments []Segment, pred func(models.DutyStatus) bool) []run {
	var out []run
	for _, s := range segments {
		if !pred(s.Status) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].end.Equal(s.Start) {
			out[n-1].end = s.End
			continue
		}
		out = append(out, run{s.Start, s.End})
	}
	return out
}

// clip returns the portions of segments matching pred inside [from, to).
func clip(segments []Segment, from, to time.Time, pred func(models.DutyStatus) bool) []Segment {
	var out []Segment
	for _, s := range segments {
		if !pred(s.Status) || !s.End.After(from) || !s.Start.Before(to) {
			continue
		}
		c := s
		if c.Start.Before(from) {
			c.Start = from
		}
		if c.End.After(to) {
			c.End = to
		}
		out = append(out, c)
	}
	return out
}

func total(segments []Segment) time.Duration {
	var d time.Duration
	for _, s := range segments {
		d += s.Duration()
	}
	return d
}

// Crossing marks the instant a cumulative total reached a limit and the entry
// in progress at that instant.
type Crossing struct {
	At      time.Time
	EntryID id.EntryID
}

// crossing walks pieces in order and reports where the running total reaches
// limit. strict requires the total to go beyond limit.
func crossing(pieces []Segment, limit time.Duration, strict bool) *Crossing {
	var cum time.Duration
	for _, p := range pieces {
		d := p.Duration()
		next := cum + d
		if next > limit || (!strict && next == limit) {
			return &Crossing{At: p.Start.Add(limit - cum), EntryID: p.EntryID}
		}
		cum = next
	}
	return nil
}

func isDriving(s models.DutyStatus) bool    { return s == models.StatusDriving }
func isNotDriving(s models.DutyStatus) bool { return s != models.StatusDriving }
func isOnDuty(s models.DutyStatus) bool     { return s.IsOnDuty() }
func isRest(s models.DutyStatus) bool       { return s.IsRest() }
