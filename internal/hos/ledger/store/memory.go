// Package store persists duty-status entries.
package store

import (
	"context"
	"iter"
	"sync"
	"time"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
)

// InMemory keeps each driver's log as a sequence-ordered slice. Entries are
// copied in and out, so callers never share memory with the store.
type InMemory struct {
	mu      sync.RWMutex
	logs    map[id.DriverID][]models.Entry
	byID    map[id.EntryID]locator
	overlay map[id.EntryID]id.EntryID
}

type locator struct {
	driver id.DriverID
	index  int
}

func NewInMemory() *InMemory {
	return &InMemory{
		logs:    make(map[id.DriverID][]models.Entry),
		byID:    make(map[id.EntryID]locator),
		overlay: make(map[id.EntryID]id.EntryID),
	}
}

func (s *InMemory) Head(_ context.Context, driverID id.DriverID) (models.Head, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headLocked(driverID), nil
}

func (s *InMemory) headLocked(driverID id.DriverID) models.Head {
	log := s.logs[driverID]
	if len(log) == 0 {
		return models.Head{}
	}
	head := models.Head{Sequence: log[len(log)-1].Sequence}
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].IsOpen() {
			open := clone(log[i])
			head.Open = &open
			break
		}
	}
	return head
}

func (s *InMemory) Commit(_ context.Context, driverID id.DriverID, expectedSeq int64, closed *models.Entry, next models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head := s.headLocked(driverID)
	if head.Sequence != expectedSeq {
		return sentinel.ErrConflict
	}
	if closed != nil {
		if head.Open == nil || head.Open.ID != closed.ID || closed.EndTime == nil {
			return sentinel.ErrConflict
		}
	} else if next.IsOpen() && head.Open != nil {
		return sentinel.ErrInvalidState
	}

	log := s.logs[driverID]
	if closed != nil {
		loc := s.byID[closed.ID]
		end := *closed.EndTime
		log[loc.index].EndTime = &end
	}
	next.Sequence = expectedSeq + 1
	s.byID[next.ID] = locator{driver: driverID, index: len(log)}
	if next.AmendsEntry != nil {
		s.overlay[*next.AmendsEntry] = next.ID
	}
	s.logs[driverID] = append(log, clone(next))
	return nil
}

func (s *InMemory) FindByID(_ context.Context, entryID id.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(entryID)
}

func (s *InMemory) findLocked(entryID id.EntryID) (*models.Entry, error) {
	loc, ok := s.byID[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := clone(s.logs[loc.driver][loc.index])
	return &e, nil
}

func (s *InMemory) MarkCertified(_ context.Context, entryID id.EntryID, at time.Time, by id.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.byID[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e := &s.logs[loc.driver][loc.index]
	if e.CertifiedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	if e.IsOpen() {
		return sentinel.ErrInvalidState
	}
	t := at
	e.CertifiedAt = &t
	e.CertifiedBy = by
	return nil
}

// Scan snapshots matching entries under the read lock and yields them after
// releasing it.
func (s *InMemory) Scan(ctx context.Context, driverID id.DriverID, from, to time.Time) iter.Seq2[models.Entry, error] {
	return func(yield func(models.Entry, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(models.Entry{}, err)
			return
		}
		s.mu.RLock()
		log := s.logs[driverID]
		var out []models.Entry
		picked := make(map[id.EntryID]bool)
		for _, e := range log {
			if e.Overlaps(from, to) {
				picked[e.ID] = true
			}
		}
		for _, e := range log {
			if picked[e.ID] || (e.AmendsEntry != nil && picked[*e.AmendsEntry]) {
				out = append(out, clone(e))
			}
		}
		s.mu.RUnlock()

		for _, e := range out {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *InMemory) SupersededBy(_ context.Context, entryID id.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	overlayID, ok := s.overlay[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.findLocked(overlayID)
}

// clone deep-copies the pointer fields of an entry.
func clone(e models.Entry) models.Entry {
	out := e
	if e.EndTime != nil {
		t := *e.EndTime
		out.EndTime = &t
	}
	if e.CertifiedAt != nil {
		t := *e.CertifiedAt
		out.CertifiedAt = &t
	}
	if e.AmendsEntry != nil {
		v := *e.AmendsEntry
		out.AmendsEntry = &v
	}
	if e.AmendmentID != nil {
		v := *e.AmendmentID
		out.AmendmentID = &v
	}
	if e.Metadata.Location != nil {
		l := *e.Metadata.Location
		out.Metadata.Location = &l
	}
	if e.Metadata.Odometer != nil {
		v := *e.Metadata.Odometer
		out.Metadata.Odometer = &v
	}
	if e.Metadata.EngineHours != nil {
		v := *e.Metadata.EngineHours
		out.Metadata.EngineHours = &v
	}
	return out
}
