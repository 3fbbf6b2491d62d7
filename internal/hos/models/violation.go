package models

import (
	"time"

	"github.com/google/uuid"

	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

// ViolationKind names the limit that was exceeded.
type ViolationKind string

const (
	ViolationDailyDriving ViolationKind = "DAILY_DRIVING_LIMIT"
	ViolationCycle        ViolationKind = "WEEKLY_DRIVING_LIMIT"
	ViolationOnDuty       ViolationKind = "ON_DUTY_LIMIT"
	ViolationRestBreak    ViolationKind = "REST_BREAK_REQUIRED"
	ViolationShift        ViolationKind = "SHIFT_LIMIT"
)

// ParseViolationKind parses a filter value.
func ParseViolationKind(s string) (ViolationKind, error) {
	switch k := ViolationKind(s); k {
	case ViolationDailyDriving, ViolationCycle, ViolationOnDuty, ViolationRestBreak, ViolationShift:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid violation kind").WithDetail("kind", s)
}

// Severity of a violation.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity parses a filter value.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityWarning, SeverityCritical:
		return Severity(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid severity").WithDetail("severity", s)
}

// violationNamespace seeds deterministic violation ids.
var violationNamespace = uuid.MustParse("6f1c2b8e-3d5a-4c8e-9b0e-5a7d1f2c4e60")

// Violation is a detected breach of a rule-set limit. Recomputation never
// clears one; only an explicit resolution sets Resolved.
type Violation struct {
	ID                id.ViolationID `json:"id"`
	DriverID          id.DriverID    `json:"driver_id"`
	Kind              ViolationKind  `json:"kind"`
	Severity          Severity       `json:"severity"`
	RuleSetKey        string         `json:"rule_set_key"`
	TriggeringEntryID id.EntryID     `json:"triggering_entry_id"`
	DetectedAt        time.Time      `json:"detected_at"`
	Used              time.Duration  `json:"used"`
	Limit             time.Duration  `json:"limit"`
	Resolved          bool           `json:"resolved"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy        id.ActorID     `json:"resolved_by,omitempty"`
	ResolutionNote    string         `json:"resolution_note,omitempty"`
}

// NewViolation builds an unresolved violation. The id is derived from the
// driver, kind, severity, triggering entry and the instant the limit was
// crossed, so evaluating an unchanged ledger yields the same id and a stored
// violation is never duplicated.
func NewViolation(driverID id.DriverID, kind ViolationKind, sev Severity, ruleSetKey string, trigger id.EntryID, crossedAt time.Time, used, limit time.Duration) Violation {
	name := string(driverID) + "|" + string(kind) + "|" + string(sev) + "|" + trigger.String() + "|" + crossedAt.UTC().Format(time.RFC3339Nano)
	return Violation{
		ID:                id.ViolationID(uuid.NewSHA1(violationNamespace, []byte(name))),
		DriverID:          driverID,
		Kind:              kind,
		Severity:          sev,
		RuleSetKey:        ruleSetKey,
		TriggeringEntryID: trigger,
		DetectedAt:        crossedAt,
		Used:              used,
		Limit:             limit,
	}
}

// CanResolve reports whether an explicit resolution is allowed.
func (v *Violation) CanResolve() error {
	if v.Resolved {
		return dErrors.New(dErrors.CodeInvalidTransition, "violation already resolved").
			WithDetail("violation_id", v.ID.String())
	}
	return nil
}

// ApplyResolution marks the violation resolved. Call CanResolve first.
func (v *Violation) ApplyResolution(by id.ActorID, note string, now time.Time) {
	v.Resolved = true
	t := now
	v.ResolvedAt = &t
	v.ResolvedBy = by
	v.ResolutionNote = note
}

// ViolationFilter selects stored violations. Zero fields match everything.
type ViolationFilter struct {
	DriverID       id.DriverID
	Severity       Severity
	Kinds          []ViolationKind
	UnresolvedOnly bool
	// Since drops violations detected before it.
	Since time.Time
	Limit int
}

// Matches applies the filter to one violation.
func (f ViolationFilter) Matches(v Violation) bool {
	if f.DriverID != "" && v.DriverID != f.DriverID {
		return false
	}
	if f.Severity != "" && v.Severity != f.Severity {
		return false
	}
	if f.UnresolvedOnly && v.Resolved {
		return false
	}
	if !f.Since.IsZero() && v.DetectedAt.Before(f.Since) {
		return false
	}
	if len(f.Kinds) > 0 {
		for _, k := range f.Kinds {
			if k == v.Kind {
				return true
			}
		}
		return false
	}
	return true
}
