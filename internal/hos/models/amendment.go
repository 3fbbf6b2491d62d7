package models

import (
	"strings"
	"time"

	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

// AmendmentState is the approval state of an amendment request.
type AmendmentState string

const (
	AmendmentPending  AmendmentState = "PENDING"
	AmendmentApproved AmendmentState = "APPROVED"
	AmendmentRejected AmendmentState = "REJECTED"
)

func (s AmendmentState) IsTerminal() bool {
	return s == AmendmentApproved || s == AmendmentRejected
}

// CanTransitionTo allows PENDING → APPROVED | REJECTED only.
func (s AmendmentState) CanTransitionTo(next AmendmentState) bool {
	return s == AmendmentPending && next.IsTerminal()
}

const maxAmendmentReasonLength = 1024

// AmendmentRequest is a proposed correction to a certified entry.
//
// Invariants:
//   - Reason is non-empty
//   - ProposedStart is before ProposedEnd
//   - approval never rewrites the target entry; it produces a new EDITED
//     entry referenced by ResultEntryID
//   - the decider is neither the requester nor the target entry's author
type AmendmentRequest struct {
	ID             id.AmendmentID `json:"id"`
	DriverID       id.DriverID    `json:"driver_id"`
	TargetEntryID  id.EntryID     `json:"target_entry_id"`
	RequestedBy    id.ActorID     `json:"requested_by"`
	RequestedAt    time.Time      `json:"requested_at"`
	Reason         string         `json:"reason"`
	ProposedStatus DutyStatus     `json:"proposed_status"`
	ProposedStart  time.Time      `json:"proposed_start"`
	ProposedEnd    time.Time      `json:"proposed_end"`
	State          AmendmentState `json:"state"`
	DecidedBy      id.ActorID     `json:"decided_by,omitempty"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	DecisionNote   string         `json:"decision_note,omitempty"`
	ResultEntryID  *id.EntryID    `json:"result_entry_id,omitempty"`
}

// Proposal carries the fields an amendment may change.
type Proposal struct {
	Status DutyStatus
	Start  time.Time
	End    time.Time
}

// NewAmendmentRequest validates and builds a pending request.
func NewAmendmentRequest(amendmentID id.AmendmentID, target Entry, requestedBy id.ActorID, reason string, p Proposal, now time.Time) (*AmendmentRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "amendment reason is required").
			WithDetail("entry_id", target.ID.String())
	}
	if len(reason) > maxAmendmentReasonLength {
		return nil, dErrors.New(dErrors.CodeValidation, "amendment reason is too long")
	}
	if requestedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "requesting actor is required")
	}
	if !p.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid proposed status")
	}
	if p.Start.IsZero() || p.End.IsZero() || !p.Start.Before(p.End) {
		return nil, dErrors.New(dErrors.CodeValidation, "proposed start must precede proposed end").
			WithDetail("proposed_start", p.Start.Format(time.RFC3339Nano)).
			WithDetail("proposed_end", p.End.Format(time.RFC3339Nano))
	}
	if p.End.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "proposed end cannot be in the future")
	}
	return &AmendmentRequest{
		ID:             amendmentID,
		DriverID:       target.DriverID,
		TargetEntryID:  target.ID,
		RequestedBy:    requestedBy,
		RequestedAt:    now,
		Reason:         reason,
		ProposedStatus: p.Status,
		ProposedStart:  p.Start,
		ProposedEnd:    p.End,
		State:          AmendmentPending,
	}, nil
}

func (a *AmendmentRequest) Proposal() Proposal {
	return Proposal{Status: a.ProposedStatus, Start: a.ProposedStart, End: a.ProposedEnd}
}

// CanDecide checks the transition and the four-eyes rule. author is the
// actor who recorded the target entry.
func (a *AmendmentRequest) CanDecide(next AmendmentState, decider, author id.ActorID) error {
	if !a.State.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition, "amendment is not pending").
			WithDetail("amendment_id", a.ID.String()).
			WithDetail("state", string(a.State))
	}
	if decider.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "deciding actor is required")
	}
	if decider == a.RequestedBy || decider == author {
		return dErrors.New(dErrors.CodeForbidden, "amendment must be decided by a different actor").
			WithDetail("amendment_id", a.ID.String()).
			WithDetail("actor_id", decider.String())
	}
	return nil
}

// ApplyDecision records a terminal decision. Call CanDecide first.
func (a *AmendmentRequest) ApplyDecision(next AmendmentState, decider id.ActorID, note string, resultEntry *id.EntryID, now time.Time) {
	a.State = next
	a.DecidedBy = decider
	t := now
	a.DecidedAt = &t
	a.DecisionNote = strings.TrimSpace(note)
	a.ResultEntryID = resultEntry
}
