// Package store persists detected violations.
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

// InMemory keeps violations in a map guarded by an RWMutex.
type InMemory struct {
	mu         sync.RWMutex
	violations map[id.ViolationID]models.Violation
}

func NewInMemory() *InMemory {
	return &InMemory{violations: make(map[id.ViolationID]models.Violation)}
}

func (s *InMemory) Insert(_ context.Context, v models.Violation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.violations[v.ID]; ok {
		return false, nil
	}
	s.violations[v.ID] = v
	return true, nil
}

func (s *InMemory) FindByID(_ context.Context, violationID id.ViolationID) (*models.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.violations[violationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (s *InMemory) List(_ context.Context, filter models.ViolationFilter) ([]models.Violation, error) {
	s.mu.RLock()
	out := make([]models.Violation, 0)
	for _, v := range s.violations {
		if filter.Matches(v) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()

	sortViolations(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemory) Resolve(_ context.Context, v models.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.violations[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Resolved {
		return sentinel.ErrAlreadyUsed
	}
	stored.Resolved = true
	stored.ResolvedAt = v.ResolvedAt
	stored.ResolvedBy = v.ResolvedBy
	stored.ResolutionNote = v.ResolutionNote
	s.violations[v.ID] = stored
	return nil
}

func sortViolations(vs []models.Violation) {
	slices.SortFunc(vs, func(a, b models.Violation) int {
		if c := a.DetectedAt.Compare(b.DetectedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
