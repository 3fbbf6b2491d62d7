package models

import (
	"time"

	id "fleetops/pkg/domain"
)

// Location is an already-resolved position attached to an entry. The engine
// stores it opaquely.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Metadata is the optional vehicle and position context reported with a
// status change.
type Metadata struct {
	Location    *Location `json:"location,omitempty"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	TrailerID   string    `json:"trailer_id,omitempty"`
	Odometer    *float64  `json:"odometer,omitempty"`
	EngineHours *float64  `json:"engine_hours,omitempty"`
}

// Entry is one segment of a driver's duty-status timeline.
//
// Invariants:
//   - at most one entry per driver has a nil EndTime (the open entry)
//   - sequence numbers are strictly increasing and gapless per driver
//   - entries are value objects: stores hand out copies, never shared pointers
//   - once CertifiedAt is set, status/start/end/location never change
//   - EDITED entries reference the entry they supersede via AmendsEntryID
type Entry struct {
	ID          id.EntryID      `json:"id"`
	DriverID    id.DriverID     `json:"driver_id"`
	Sequence    int64           `json:"sequence"`
	Status      DutyStatus      `json:"status"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Metadata    Metadata        `json:"metadata"`
	DataSource  DataSource      `json:"data_source"`
	RecordedBy  id.ActorID      `json:"recorded_by"`
	RecordedAt  time.Time       `json:"recorded_at"`
	CertifiedAt *time.Time      `json:"certified_at,omitempty"`
	CertifiedBy id.ActorID      `json:"certified_by,omitempty"`
	AmendsEntry *id.EntryID     `json:"amends_entry_id,omitempty"`
	AmendmentID *id.AmendmentID `json:"amendment_id,omitempty"`
}

func (e Entry) IsOpen() bool      { return e.EndTime == nil }
func (e Entry) IsCertified() bool { return e.CertifiedAt != nil }
func (e Entry) IsOverlay() bool   { return e.AmendsEntry != nil }

// Duration derives the segment length. Open entries are measured up to now;
// the value is never stored.
func (e Entry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	if end.Before(e.StartTime) {
		return 0
	}
	return end.Sub(e.StartTime)
}

// EndOr returns the entry end, or fallback for the open entry.
func (e Entry) EndOr(fallback time.Time) time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return fallback
}

// Overlaps reports whether the entry intersects [from, to). A zero to means
// unbounded.
func (e Entry) Overlaps(from, to time.Time) bool {
	if !to.IsZero() && !e.StartTime.Before(to) {
		return false
	}
	if e.EndTime != nil && !e.EndTime.After(from) {
		return false
	}
	return true
}

// Closed returns a copy of the entry closed at end.
func (e Entry) Closed(end time.Time) Entry {
	out := e
	t := end
	out.EndTime = &t
	return out
}

// Head is the ledger tip for a driver: the last committed sequence and the
// open entry, if any.
type Head struct {
	Sequence int64
	Open     *Entry
}
