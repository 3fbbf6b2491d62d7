package violation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fleetops/internal/hos/models"
	"fleetops/internal/hos/ruleset"
	"fleetops/internal/hos/window"
	id "fleetops/pkg/domain"
)

var day = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type DetectorSuite struct {
	suite.Suite
	detector *Detector
	agg      window.Aggregator
	rs       models.RuleSet
	entries  []models.Entry
}

func TestDetectorSuite(t *testing.T) {
	suite.Run(t, new(DetectorSuite))
}

func (s *DetectorSuite) SetupTest() {
	s.agg = window.New(nil)
	s.detector = NewDetector(s.agg)
	rs, err := ruleset.MustBuiltin().Resolve(ruleset.KeyUSInterstate)
	s.Require().NoError(err)
	s.rs = rs
	s.entries = nil
}

// add appends an entry; a zero end leaves it open.
func (s *DetectorSuite) add(status models.DutyStatus, start, end time.Time) models.Entry {
	e := models.Entry{
		ID:        id.NewEntryID(),
		DriverID:  "driver-1",
		Sequence:  int64(len(s.entries) + 1),
		Status:    status,
		StartTime: start,
	}
	if !end.IsZero() {
		e = e.Closed(end)
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *DetectorSuite) evaluate(now time.Time) []models.Violation {
	return s.detector.Evaluate("driver-1", s.agg.Aggregate(s.entries, now, s.rs), s.rs)
}

func (s *DetectorSuite) TestWithinLimits() {
	s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
	s.add(models.StatusDriving, at(6, 0), time.Time{})

	s.Empty(s.evaluate(at(12, 30)))
}

func (s *DetectorSuite) TestDailyDrivingLimit() {
	s.add(models.StatusOffDuty, at(-6, 0), at(5, 0))
	first := s.add(models.StatusDriving, at(5, 0), at(11, 0))
	s.add(models.StatusOffDuty, at(11, 0), at(11, 30))
	second := s.add(models.StatusDriving, at(11, 30), time.Time{})

	got := s.evaluate(at(16, 31))
	s.Require().Len(got, 1)
	v := got[0]
	s.Equal(models.ViolationDailyDriving, v.Kind)
	s.Equal(models.SeverityCritical, v.Severity)
	s.Equal(second.ID, v.TriggeringEntryID)
	s.Equal(at(16, 30), v.DetectedAt)
	s.Equal(11*time.Hour+time.Minute, v.Used)
	s.Equal(s.rs.DriveLimit, v.Limit)
	s.Equal(ruleset.KeyUSInterstate, v.RuleSetKey)
	s.NotEqual(first.ID, v.TriggeringEntryID)
}

func (s *DetectorSuite) TestBreakRule() {
	s.Run("warning at the trigger", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		drive := s.add(models.StatusDriving, at(6, 0), time.Time{})

		got := s.evaluate(at(14, 0))
		s.Require().Len(got, 1)
		s.Equal(models.ViolationRestBreak, got[0].Kind)
		s.Equal(models.SeverityWarning, got[0].Severity)
		s.Equal(drive.ID, got[0].TriggeringEntryID)
		s.Equal(at(14, 0), got[0].DetectedAt)
	})

	s.Run("driving on escalates", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		got := s.evaluate(at(14, 10))
		s.Require().Len(got, 2)
		s.Equal(models.SeverityWarning, got[0].Severity)
		s.Equal(models.SeverityCritical, got[1].Severity)
		s.NotEqual(got[0].ID, got[1].ID)
		s.Equal(at(14, 0), got[0].DetectedAt)
		s.Equal(at(14, 0).Add(window.BreakEscalationGrace), got[1].DetectedAt)
	})

	s.Run("reaching the trigger alone does not escalate", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		got := s.evaluate(at(14, 0).Add(30 * time.Second))
		s.Require().Len(got, 1)
		s.Equal(models.SeverityWarning, got[0].Severity)
	})

	s.Run("a qualifying break clears the active set", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), at(14, 10))
		s.add(models.StatusOffDuty, at(14, 10), at(14, 45))
		s.add(models.StatusDriving, at(14, 45), time.Time{})

		for _, v := range s.evaluate(at(15, 30)) {
			s.NotEqual(models.ViolationRestBreak, v.Kind)
		}
	})

	s.Run("rule sets without a break rule never warn", func() {
		s.SetupTest()
		rs, err := ruleset.MustBuiltin().Resolve(ruleset.KeyTexasIntrastate)
		s.Require().NoError(err)
		s.rs = rs
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		s.Empty(s.evaluate(at(15, 0)))
	})
}

func (s *DetectorSuite) TestOrderedAndDeterministic() {
	s.add(models.StatusOffDuty, at(-12, 0), at(0, 0))
	s.add(models.StatusDriving, at(0, 0), time.Time{})

	now := at(15, 0)
	first := s.evaluate(now)
	second := s.evaluate(now)
	s.Equal(first, second)

	s.Require().Len(first, 5)
	s.Equal(models.ViolationRestBreak, first[0].Kind)
	s.Equal(models.ViolationRestBreak, first[1].Kind)
	s.Equal(models.ViolationDailyDriving, first[2].Kind)
	s.Equal(models.ViolationOnDuty, first[3].Kind)
	s.Equal(models.ViolationShift, first[4].Kind)
	s.Equal(first[3].DetectedAt, first[4].DetectedAt)
	for i := 1; i < len(first); i++ {
		s.False(first[i].DetectedAt.Before(first[i-1].DetectedAt))
	}
}

func (s *DetectorSuite) TestShiftAndCycle() {
	s.Run("shift span counts rest taken inside the shift", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-12, 0), at(4, 0))
		s.add(models.StatusOnDuty, at(4, 0), at(8, 0))
		s.add(models.StatusOffDuty, at(8, 0), at(14, 0))
		onDuty := s.add(models.StatusOnDuty, at(14, 0), time.Time{})

		got := s.evaluate(at(18, 30))
		s.Require().Len(got, 1)
		s.Equal(models.ViolationShift, got[0].Kind)
		s.Equal(at(18, 0), got[0].DetectedAt)
		s.Equal(onDuty.ID, got[0].TriggeringEntryID)
	})

	s.Run("cycle limit", func() {
		s.SetupTest()
		rs := s.rs
		rs.CycleLimit = 20 * time.Hour
		s.rs = rs
		for d := 2; d >= 1; d-- {
			base := day.AddDate(0, 0, -d)
			s.add(models.StatusOnDuty, base.Add(6*time.Hour), base.Add(16*time.Hour))
			s.add(models.StatusOffDuty, base.Add(16*time.Hour), base.Add(30*time.Hour))
		}
		last := s.add(models.StatusOnDuty, at(6, 0), time.Time{})

		got := s.evaluate(at(7, 0))
		s.Require().Len(got, 1)
		s.Equal(models.ViolationCycle, got[0].Kind)
		s.Equal(last.ID, got[0].TriggeringEntryID)
		s.Equal(at(6, 0), got[0].DetectedAt)
	})
}

func (s *DetectorSuite) TestPredictNextBreak() {
	s.Run("driving projects the trigger", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		next := s.detector.PredictNextBreak(s.entries, s.rs, at(9, 0))
		s.Require().NotNil(next)
		s.Equal(at(14, 0), *next)
	})

	s.Run("overdue break is due now", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		next := s.detector.PredictNextBreak(s.entries, s.rs, at(15, 0))
		s.Require().NotNil(next)
		s.Equal(at(15, 0), *next)
	})

	s.Run("not driving", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), at(9, 0))
		s.add(models.StatusOnDuty, at(9, 0), time.Time{})

		s.Nil(s.detector.PredictNextBreak(s.entries, s.rs, at(9, 10)))
	})
}

func (s *DetectorSuite) TestPredictNextRest() {
	s.Run("daily drive binds first", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusDriving, at(6, 0), time.Time{})

		next := s.detector.PredictNextRest(s.entries, s.rs, at(8, 0))
		s.Require().NotNil(next)
		s.Equal(at(17, 0), *next)
	})

	s.Run("shift binds when on duty without driving", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), at(6, 0))
		s.add(models.StatusOnDuty, at(6, 0), at(7, 0))
		s.add(models.StatusOffDuty, at(7, 0), at(12, 0))
		s.add(models.StatusOnDuty, at(12, 0), time.Time{})

		next := s.detector.PredictNextRest(s.entries, s.rs, at(13, 0))
		s.Require().NotNil(next)
		s.Equal(at(20, 0), *next)
	})

	s.Run("resting", func() {
		s.SetupTest()
		s.add(models.StatusOffDuty, at(-6, 0), time.Time{})
		s.Nil(s.detector.PredictNextRest(s.entries, s.rs, at(8, 0)))
	})

	s.Run("no entries", func() {
		s.SetupTest()
		s.Nil(s.detector.PredictNextRest(nil, s.rs, at(8, 0)))
		s.Nil(s.detector.PredictNextBreak(nil, s.rs, at(8, 0)))
	})
}
