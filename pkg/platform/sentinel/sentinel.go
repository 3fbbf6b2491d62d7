package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: a compare-and-swap lost (sequence moved, lock held elsewhere)
//   - ErrAlreadyUsed: a write-once field (certified_at, resolved_at) is already set
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
