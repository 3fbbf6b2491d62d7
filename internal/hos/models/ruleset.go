package models

import (
	"time"

	dErrors "fleetops/pkg/domain-errors"
)

// RuleSet is a named, versioned table of jurisdictional HOS limits. Values
// are immutable once loaded into a registry.
type RuleSet struct {
	Key           string    `json:"key" yaml:"key"`
	Name          string    `json:"name" yaml:"name"`
	Version       string    `json:"version" yaml:"version"`
	EffectiveFrom time.Time `json:"effective_from" yaml:"effective_from"`

	DriveLimit            time.Duration `json:"drive_limit" yaml:"drive_limit"`
	OnDutyLimit           time.Duration `json:"on_duty_limit" yaml:"on_duty_limit"`
	ShiftLimit            time.Duration `json:"shift_limit" yaml:"shift_limit"`
	CycleLimit            time.Duration `json:"cycle_limit" yaml:"cycle_limit"`
	CycleWindowDays       int           `json:"cycle_window_days" yaml:"cycle_window_days"`
	RequiredBreakDuration time.Duration `json:"required_break_duration" yaml:"required_break_duration"`
	BreakTriggerDriveTime time.Duration `json:"break_trigger_drive_time" yaml:"break_trigger_drive_time"`
	MinOffDutyRest        time.Duration `json:"min_off_duty_rest" yaml:"min_off_duty_rest"`
	SplitSleeperAllowed   bool          `json:"split_sleeper_allowed" yaml:"split_sleeper_allowed"`

	// CycleResetRest is the continuous off-duty period that restarts the
	// cycle (34h in the US). Zero disables restarts.
	CycleResetRest time.Duration `json:"cycle_reset_rest,omitempty" yaml:"cycle_reset_rest"`
}

// BreakRuleEnabled reports whether the rule set requires in-shift breaks.
func (r RuleSet) BreakRuleEnabled() bool {
	return r.RequiredBreakDuration > 0 && r.BreakTriggerDriveTime > 0
}

// Validate checks the limits are internally consistent.
func (r RuleSet) Validate() error {
	fail := func(msg string) error {
		return dErrors.New(dErrors.CodeValidation, msg).WithDetail("rule_set", r.Key)
	}
	switch {
	case r.Key == "":
		return dErrors.New(dErrors.CodeValidation, "rule set key is required")
	case r.DriveLimit <= 0, r.OnDutyLimit <= 0, r.ShiftLimit <= 0, r.CycleLimit <= 0:
		return fail("rule set limits must be positive")
	case r.CycleWindowDays <= 0:
		return fail("cycle window must be at least one day")
	case r.MinOffDutyRest <= 0:
		return fail("minimum off-duty rest must be positive")
	case r.DriveLimit > r.OnDutyLimit:
		return fail("drive limit cannot exceed on-duty limit")
	case (r.RequiredBreakDuration > 0) != (r.BreakTriggerDriveTime > 0):
		return fail("break duration and break trigger must be set together")
	case r.CycleResetRest < 0:
		return fail("cycle reset rest cannot be negative")
	}
	return nil
}
