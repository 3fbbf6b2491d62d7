//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fleetops/internal/hos/ledger"
	"fleetops/internal/hos/ledger/store"
	"fleetops/internal/hos/models"
	"fleetops/pkg/platform/tx"
	"fleetops/pkg/requestcontext"
	"fleetops/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	svc *ledger.Service
	ctx context.Context
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

var start = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
}

func (s *PostgresSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), start.Add(18*time.Hour))
	s.Require().NoError(s.pg.Truncate(s.ctx))
	s.svc = ledger.NewService(store.NewPostgres(s.pg.DB),
		ledger.WithTx(tx.NewPostgres(s.pg.DB, 5*time.Second)),
	)
}

func (s *PostgresSuite) TestAppendChain() {
	for i, status := range []models.DutyStatus{models.StatusOnDuty, models.StatusDriving, models.StatusOffDuty} {
		_, err := s.svc.Append(s.ctx, ledger.AppendCommand{
			DriverID: "driver-1", Status: status, At: start.Add(time.Duration(i) * time.Hour), RecordedBy: "driver-1",
		})
		s.Require().NoError(err)
	}

	entries, err := s.svc.Entries(s.ctx, "driver-1", start, time.Time{})
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(start.Add(time.Hour), entries[0].EndTime.UTC())
	s.True(entries[2].IsOpen())

	current, err := s.svc.CurrentEntry(s.ctx, "driver-1")
	s.Require().NoError(err)
	s.Equal(entries[2].ID, current.ID)
}

func (s *PostgresSuite) TestCertifyAndOverlay() {
	first, err := s.svc.Append(s.ctx, ledger.AppendCommand{DriverID: "driver-1", Status: models.StatusOnDuty, At: start, RecordedBy: "driver-1"})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, ledger.AppendCommand{DriverID: "driver-1", Status: models.StatusOffDuty, At: start.Add(2 * time.Hour), RecordedBy: "driver-1"})
	s.Require().NoError(err)

	_, err = s.svc.Certify(s.ctx, first.ID, "driver-1")
	s.Require().NoError(err)

	err = s.svc.Serialize(s.ctx, "driver-1", func(ctx context.Context) error {
		_, err := s.svc.CommitOverlay(ctx, ledger.Overlay{
			Target: first.ID, Status: models.StatusDriving,
			Start: start, End: start.Add(time.Hour), ApprovedBy: "compliance-1",
		})
		return err
	})
	s.Require().NoError(err)

	overlay, err := s.svc.SupersededBy(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Require().NotNil(overlay)
	s.Equal(models.SourceEdited, overlay.DataSource)
}
