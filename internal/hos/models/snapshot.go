package models

import (
	"time"

	id "fleetops/pkg/domain"
)

// WindowName identifies a limit window in a snapshot.
type WindowName string

const (
	WindowDailyDrive  WindowName = "daily_drive"
	WindowDailyOnDuty WindowName = "daily_on_duty"
	WindowShift       WindowName = "shift"
	WindowCycle       WindowName = "cycle"
)

// WindowStatus is the usage of one limit window.
type WindowStatus struct {
	Used      time.Duration `json:"used"`
	Remaining time.Duration `json:"remaining"`
	Limit     time.Duration `json:"limit"`
}

// NewWindowStatus clamps remaining at zero.
func NewWindowStatus(used, limit time.Duration) WindowStatus {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return WindowStatus{Used: used, Remaining: remaining, Limit: limit}
}

// ComplianceSnapshot is the computed, ephemeral compliance view of a driver.
// It is never persisted as a source of truth.
type ComplianceSnapshot struct {
	DriverID            id.DriverID                 `json:"driver_id"`
	RuleSetKey          string                      `json:"rule_set_key"`
	RuleSetVersion      string                      `json:"rule_set_version"`
	AsOf                time.Time                   `json:"as_of"`
	CurrentStatus       DutyStatus                  `json:"current_status,omitempty"`
	Windows             map[WindowName]WindowStatus `json:"windows"`
	DriveSinceBreak     time.Duration               `json:"drive_since_break"`
	Violations          []Violation                 `json:"violations"`
	NextBreakRequiredAt *time.Time                  `json:"next_break_required_at,omitempty"`
	NextRestRequiredAt  *time.Time                  `json:"next_rest_required_at,omitempty"`
	CanDrive            bool                        `json:"can_drive"`
	CanWork             bool                        `json:"can_work"`
	ComputedAt          time.Time                   `json:"computed_at"`
}

// HasCritical reports whether any active violation is CRITICAL.
func (s ComplianceSnapshot) HasCritical() bool {
	for _, v := range s.Violations {
		if v.Severity == SeverityCritical && !v.Resolved {
			return true
		}
	}
	return false
}
