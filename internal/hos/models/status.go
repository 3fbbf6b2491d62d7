package models

import (
	dErrors "fleetops/pkg/domain-errors"
)

// DutyStatus is the driver's regulatory activity class for a segment.
type DutyStatus string

const (
	StatusOffDuty      DutyStatus = "OFF_DUTY"
	StatusSleeperBerth DutyStatus = "SLEEPER_BERTH"
	StatusOnDuty       DutyStatus = "ON_DUTY"
	StatusDriving      DutyStatus = "DRIVING"
)

var validStatuses = map[DutyStatus]bool{
	StatusOffDuty:      true,
	StatusSleeperBerth: true,
	StatusOnDuty:       true,
	StatusDriving:      true,
}

// ParseDutyStatus constructs a DutyStatus from external input.
func ParseDutyStatus(s string) (DutyStatus, error) {
	st := DutyStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid duty status").WithDetail("status", s)
	}
	return st, nil
}

func (s DutyStatus) IsValid() bool { return validStatuses[s] }

// IsOnDuty reports whether time in this status counts toward on-duty limits.
func (s DutyStatus) IsOnDuty() bool { return s == StatusOnDuty || s == StatusDriving }

// IsRest reports whether time in this status counts toward rest periods.
func (s DutyStatus) IsRest() bool { return s == StatusOffDuty || s == StatusSleeperBerth }

// IsValidInitial reports whether a driver's very first entry may carry this
// status. A log cannot open in DRIVING: the driver goes on duty first.
func (s DutyStatus) IsValidInitial() bool { return s.IsValid() && s != StatusDriving }

func (s DutyStatus) String() string { return string(s) }

// DataSource records how an entry entered the ledger.
type DataSource string

const (
	SourceAutomatic DataSource = "AUTOMATIC"
	SourceManual    DataSource = "MANUAL"
	SourceEdited    DataSource = "EDITED"
)

// ParseDataSource parses a client-supplied source. EDITED is reserved for
// entries produced by approved amendments.
func ParseDataSource(s string) (DataSource, error) {
	switch DataSource(s) {
	case "":
		return SourceManual, nil
	case SourceAutomatic, SourceManual:
		return DataSource(s), nil
	case SourceEdited:
		return "", dErrors.New(dErrors.CodeValidation, "EDITED entries are created only by approved amendments")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "invalid data source").WithDetail("data_source", s)
	}
}
