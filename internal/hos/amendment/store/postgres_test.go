package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
)

var cols = []string{
	"id", "driver_id", "target_entry_id", "requested_by", "requested_at", "reason", "proposed_status",
	"proposed_start", "proposed_end", "state", "decided_by", "decided_at", "decision_note", "result_entry_id",
}

var t0 = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func request() *models.AmendmentRequest {
	return &models.AmendmentRequest{
		ID: id.NewAmendmentID(), DriverID: "driver-1", TargetEntryID: id.NewEntryID(),
		RequestedBy: "driver-1", RequestedAt: t0, Reason: "forgot to switch to off duty",
		ProposedStatus: models.StatusOffDuty, ProposedStart: t0.Add(-5 * time.Hour), ProposedEnd: t0.Add(-4 * time.Hour),
		State: models.AmendmentPending,
	}
}

func TestPostgresCreate(t *testing.T) {
	ctx := context.Background()
	st, mock := newMock(t)
	a := request()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO amendment_requests")).
		WithArgs(uuid.UUID(a.ID), "driver-1", uuid.UUID(a.TargetEntryID), "driver-1", t0, a.Reason,
			"OFF_DUTY", a.ProposedStart, a.ProposedEnd, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO amendment_requests")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "one_pending_amendment_per_entry"})

	require.NoError(t, st.Create(ctx, a))
	assert.ErrorIs(t, st.Create(ctx, request()), sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindPending(t *testing.T) {
	ctx := context.Background()
	st, mock := newMock(t)
	a := request()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE target_entry_id = $1 AND state = 'PENDING'")).
		WithArgs(uuid.UUID(a.TargetEntryID)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			uuid.UUID(a.ID).String(), "driver-1", uuid.UUID(a.TargetEntryID).String(), "driver-1", t0, a.Reason,
			"OFF_DUTY", a.ProposedStart, a.ProposedEnd, "PENDING", "", nil, "", nil,
		))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE target_entry_id = $1")).
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := st.FindPending(ctx, a.TargetEntryID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, models.AmendmentPending, got.State)
	assert.Nil(t, got.DecidedAt)

	_, err = st.FindPending(ctx, id.NewEntryID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDecide(t *testing.T) {
	ctx := context.Background()
	a := request()
	decided := t0.Add(time.Hour)
	result := id.NewEntryID()
	a.ApplyDecision(models.AmendmentApproved, "compliance-1", "ok", &result, decided)

	t.Run("updates a pending request", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND state = 'PENDING'")).
			WithArgs(uuid.UUID(a.ID), "APPROVED", "compliance-1", a.DecidedAt, "ok",
				uuid.NullUUID{UUID: uuid.UUID(result), Valid: true}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, st.Decide(ctx, a))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a decided request is already used", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE amendment_requests")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(
				uuid.UUID(a.ID).String(), "driver-1", uuid.UUID(a.TargetEntryID).String(), "driver-1", t0, a.Reason,
				"OFF_DUTY", a.ProposedStart, a.ProposedEnd, "REJECTED", "compliance-2", decided, "", nil,
			))

		assert.ErrorIs(t, st.Decide(ctx, a), sentinel.ErrAlreadyUsed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown request", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE amendment_requests")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows(cols))

		assert.ErrorIs(t, st.Decide(ctx, a), sentinel.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresListByDriver(t *testing.T) {
	ctx := context.Background()
	st, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("AND state = $2 ORDER BY requested_at, id")).
		WithArgs("driver-1", "PENDING").
		WillReturnRows(sqlmock.NewRows(cols))

	out, err := st.ListByDriver(ctx, "driver-1", models.AmendmentPending)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}
