package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "fleetops/pkg/domain"
)

// Action names a regulatory-significant change to a driver's record of duty
// status.
type Action string

const (
	// Ledger actions
	ActionEntryAppended  Action = "entry_appended"
	ActionEntryCertified Action = "entry_certified"

	// Amendment actions
	ActionAmendmentSubmitted Action = "amendment_submitted"
	ActionAmendmentApproved  Action = "amendment_approved"
	ActionAmendmentRejected  Action = "amendment_rejected"

	// Violation actions
	ActionViolationDetected Action = "violation_detected"
	ActionViolationResolved Action = "violation_resolved"
)

var knownActions = map[Action]bool{
	ActionEntryAppended:      true,
	ActionEntryCertified:     true,
	ActionAmendmentSubmitted: true,
	ActionAmendmentApproved:  true,
	ActionAmendmentRejected:  true,
	ActionViolationDetected:  true,
	ActionViolationResolved:  true,
}

func (a Action) IsKnown() bool { return knownActions[a] }

// Event is one entry of the compliance audit trail. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    Action            `json:"action"`
	DriverID  id.DriverID       `json:"driver_id"`
	ActorID   id.ActorID        `json:"actor_id,omitempty"`
	Subject   string            `json:"subject"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Store persists audit events. Implementations called with a context carrying
// a transaction must write inside it.
type Store interface {
	Append(ctx context.Context, event Event) error
}
