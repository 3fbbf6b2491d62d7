package ruleset

import (
	"time"

	"fleetops/internal/hos/models"
)

// Built-in keys.
const (
	KeyUSInterstate      = "us-interstate"
	KeyUSInterstate60    = "us-interstate-60-7"
	KeyTexasIntrastate   = "us-intrastate-texas"
	KeyCaliforniaIntra   = "us-intrastate-california"
	KeyCanadaSouthCycle1 = "ca-south-cycle-1"
	KeyCanadaSouthCycle2 = "ca-south-cycle-2"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Builtin returns the default catalog.
func Builtin() []models.RuleSet {
	usProperty := models.RuleSet{
		DriveLimit:            11 * time.Hour,
		OnDutyLimit:           14 * time.Hour,
		ShiftLimit:            14 * time.Hour,
		RequiredBreakDuration: 30 * time.Minute,
		BreakTriggerDriveTime: 8 * time.Hour,
		MinOffDutyRest:        10 * time.Hour,
		SplitSleeperAllowed:   true,
		CycleResetRest:        34 * time.Hour,
	}

	interstate2013 := usProperty
	interstate2013.Key = KeyUSInterstate
	interstate2013.Name = "US interstate property-carrying, 70 hours / 8 days"
	interstate2013.Version = "2013"
	interstate2013.EffectiveFrom = date(2013, time.July, 1)
	interstate2013.CycleLimit = 70 * time.Hour
	interstate2013.CycleWindowDays = 8
	interstate2013.SplitSleeperAllowed = false

	interstate2020 := interstate2013
	interstate2020.Version = "2020"
	interstate2020.EffectiveFrom = date(2020, time.September, 29)
	interstate2020.SplitSleeperAllowed = true

	interstate60 := interstate2020
	interstate60.Key = KeyUSInterstate60
	interstate60.Name = "US interstate property-carrying, 60 hours / 7 days"
	interstate60.CycleLimit = 60 * time.Hour
	interstate60.CycleWindowDays = 7

	return []models.RuleSet{
		interstate2013,
		interstate2020,
		interstate60,
		{
			Key:             KeyTexasIntrastate,
			Name:            "Texas intrastate",
			Version:         "2020",
			EffectiveFrom:   date(2020, time.January, 1),
			DriveLimit:      12 * time.Hour,
			OnDutyLimit:     15 * time.Hour,
			ShiftLimit:      15 * time.Hour,
			CycleLimit:      70 * time.Hour,
			CycleWindowDays: 7,
			MinOffDutyRest:  8 * time.Hour,
			CycleResetRest:  34 * time.Hour,
		},
		{
			Key:             KeyCaliforniaIntra,
			Name:            "California intrastate",
			Version:         "2020",
			EffectiveFrom:   date(2020, time.January, 1),
			DriveLimit:      12 * time.Hour,
			OnDutyLimit:     16 * time.Hour,
			ShiftLimit:      16 * time.Hour,
			CycleLimit:      80 * time.Hour,
			CycleWindowDays: 8,
			MinOffDutyRest:  10 * time.Hour,
			CycleResetRest:  34 * time.Hour,
		},
		{
			Key:                 KeyCanadaSouthCycle1,
			Name:                "Canada south of 60°N, cycle 1",
			Version:             "2007",
			EffectiveFrom:       date(2007, time.January, 1),
			DriveLimit:          13 * time.Hour,
			OnDutyLimit:         14 * time.Hour,
			ShiftLimit:          16 * time.Hour,
			CycleLimit:          70 * time.Hour,
			CycleWindowDays:     7,
			MinOffDutyRest:      8 * time.Hour,
			SplitSleeperAllowed: true,
			CycleResetRest:      36 * time.Hour,
		},
		{
			Key:                 KeyCanadaSouthCycle2,
			Name:                "Canada south of 60°N, cycle 2",
			Version:             "2007",
			EffectiveFrom:       date(2007, time.January, 1),
			DriveLimit:          13 * time.Hour,
			OnDutyLimit:         14 * time.Hour,
			ShiftLimit:          16 * time.Hour,
			CycleLimit:          120 * time.Hour,
			CycleWindowDays:     14,
			MinOffDutyRest:      8 * time.Hour,
			SplitSleeperAllowed: true,
			CycleResetRest:      72 * time.Hour,
		},
	}
}

// MustBuiltin builds the default registry; the catalog is static so a
// failure is a programming error.
func MustBuiltin() *Registry {
	r, err := New(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}
