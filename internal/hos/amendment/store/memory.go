// Package store persists amendment requests.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	requests map[id.AmendmentID]models.AmendmentRequest
	pending  map[id.EntryID]id.AmendmentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests: make(map[id.AmendmentID]models.AmendmentRequest),
		pending:  make(map[id.EntryID]id.AmendmentID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.AmendmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[a.TargetEntryID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.requests[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[a.ID] = clone(*a)
	s.pending[a.TargetEntryID] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, amendmentID id.AmendmentID) (*models.AmendmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.requests[amendmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (s *InMemory) FindPending(ctx context.Context, entryID id.EntryID) (*models.AmendmentRequest, error) {
	s.mu.RLock()
	amendmentID, ok := s.pending[entryID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, amendmentID)
}

func (s *InMemory) Decide(_ context.Context, a *models.AmendmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.State != models.AmendmentPending {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[a.ID] = clone(*a)
	delete(s.pending, a.TargetEntryID)
	return nil
}

func (s *InMemory) ListByDriver(_ context.Context, driverID id.DriverID, state models.AmendmentState) ([]models.AmendmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AmendmentRequest
	for _, a := range s.requests {
		if a.DriverID != driverID || (state != "" && a.State != state) {
			continue
		}
		out = append(out, clone(a))
	}
	slices.SortFunc(out, func(a, b models.AmendmentRequest) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func clone(a models.AmendmentRequest) models.AmendmentRequest {
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		a.DecidedAt = &t
	}
	if a.ResultEntryID != nil {
		v := *a.ResultEntryID
		a.ResultEntryID = &v
	}
	return a
}
