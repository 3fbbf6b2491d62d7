package ruleset

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fleetops/internal/hos/models"
)

// catalogFile is the on-disk shape of a rule-set catalog.
type catalogFile struct {
	IncludeBuiltin bool          `yaml:"include_builtin"`
	RuleSets       []ruleSetFile `yaml:"rule_sets"`
}

type ruleSetFile struct {
	Key                   string `yaml:"key"`
	Name                  string `yaml:"name"`
	Version               string `yaml:"version"`
	EffectiveFrom         string `yaml:"effective_from"`
	DriveLimit            string `yaml:"drive_limit"`
	OnDutyLimit           string `yaml:"on_duty_limit"`
	ShiftLimit            string `yaml:"shift_limit"`
	CycleLimit            string `yaml:"cycle_limit"`
	CycleWindowDays       int    `yaml:"cycle_window_days"`
	RequiredBreakDuration string `yaml:"required_break_duration"`
	BreakTriggerDriveTime string `yaml:"break_trigger_drive_time"`
	MinOffDutyRest        string `yaml:"min_off_duty_rest"`
	SplitSleeperAllowed   bool   `yaml:"split_sleeper_allowed"`
	CycleResetRest        string `yaml:"cycle_reset_rest"`
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func (f ruleSetFile) toModel() (models.RuleSet, error) {
	rs := models.RuleSet{
		Key:                 f.Key,
		Name:                f.Name,
		Version:             f.Version,
		CycleWindowDays:     f.CycleWindowDays,
		SplitSleeperAllowed: f.SplitSleeperAllowed,
	}
	if f.EffectiveFrom != "" {
		t, err := time.Parse(time.DateOnly, f.EffectiveFrom)
		if err != nil {
			return rs, fmt.Errorf("rule set %s effective_from: %w", f.Key, err)
		}
		rs.EffectiveFrom = t
	}
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"drive_limit", f.DriveLimit, &rs.DriveLimit},
		{"on_duty_limit", f.OnDutyLimit, &rs.OnDutyLimit},
		{"shift_limit", f.ShiftLimit, &rs.ShiftLimit},
		{"cycle_limit", f.CycleLimit, &rs.CycleLimit},
		{"required_break_duration", f.RequiredBreakDuration, &rs.RequiredBreakDuration},
		{"break_trigger_drive_time", f.BreakTriggerDriveTime, &rs.BreakTriggerDriveTime},
		{"min_off_duty_rest", f.MinOffDutyRest, &rs.MinOffDutyRest},
		{"cycle_reset_rest", f.CycleResetRest, &rs.CycleResetRest},
	}
	for _, fd := range fields {
		d, err := parseDuration(fd.name, fd.raw)
		if err != nil {
			return rs, fmt.Errorf("rule set %s: %w", f.Key, err)
		}
		*fd.dst = d
	}
	return rs, nil
}

// Decode reads a YAML catalog and builds a Registry.
func Decode(r io.Reader) (*Registry, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode rule set catalog: %w", err)
	}

	var sets []models.RuleSet
	if file.IncludeBuiltin {
		sets = append(sets, Builtin()...)
	}
	for _, f := range file.RuleSets {
		rs, err := f.toModel()
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return New(sets...)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule set catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}
