package store

import (
	"context"
	"database/sql/driver"
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
	"fleetops/pkg/platform/tx"
)

var entryCols = []string{
	"id", "driver_id", "sequence", "status", "start_time", "end_time", "metadata", "data_source",
	"recorded_by", "recorded_at", "certified_at", "certified_by", "amends_entry_id", "amendment_id",
}

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func openRow(entryID id.EntryID, seq int64, status string, start time.Time) []driver.Value {
	return []driver.Value{
		uuid.UUID(entryID).String(), "driver-1", seq, status, start, nil, `{"vehicle_id":"truck-7"}`, "MANUAL",
		"driver-1", start, nil, "", nil, nil,
	}
}

func TestPostgresHead(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown driver has a zero head", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT last_sequence FROM driver_heads")).
			WithArgs("driver-1").
			WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}))

		head, err := st.Head(ctx, "driver-1")
		require.NoError(t, err)
		assert.Equal(t, models.Head{}, head)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("head carries the open entry", func(t *testing.T) {
		st, mock := newMock(t)
		entryID := id.NewEntryID()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT last_sequence FROM driver_heads")).
			WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(3)))
		mock.ExpectQuery(regexp.QuoteMeta("end_time IS NULL")).
			WithArgs("driver-1").
			WillReturnRows(sqlmock.NewRows(entryCols).AddRow(openRow(entryID, 3, "DRIVING", t0)...))

		head, err := st.Head(ctx, "driver-1")
		require.NoError(t, err)
		assert.EqualValues(t, 3, head.Sequence)
		require.NotNil(t, head.Open)
		assert.Equal(t, entryID, head.Open.ID)
		assert.Equal(t, models.StatusDriving, head.Open.Status)
		assert.Equal(t, "truck-7", head.Open.Metadata.VehicleID)
		assert.True(t, head.Open.IsOpen())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCommit(t *testing.T) {
	ctx := context.Background()
	next := models.Entry{
		ID: id.NewEntryID(), DriverID: "driver-1", Sequence: 2, Status: models.StatusDriving,
		StartTime: t0.Add(time.Hour), DataSource: models.SourceManual, RecordedBy: "driver-1", RecordedAt: t0,
	}
	open := models.Entry{ID: id.NewEntryID(), DriverID: "driver-1", Sequence: 1, Status: models.StatusOnDuty, StartTime: t0}
	closed := open.Closed(next.StartTime)

	t.Run("closes the open entry and inserts the next in one transaction", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE driver_heads SET last_sequence = $3")).
			WithArgs("driver-1", int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE duty_status_entries SET end_time = $2")).
			WithArgs(uuid.UUID(open.ID), closed.EndTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO duty_status_entries")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, st.Commit(ctx, "driver-1", 1, &closed, next))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moved head is a conflict", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE driver_heads")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := st.Commit(ctx, "driver-1", 1, &closed, next)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first entry claims the head row", func(t *testing.T) {
		st, mock := newMock(t)
		first := next
		first.Status = models.StatusOnDuty
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO driver_heads")).
			WithArgs("driver-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := st.Commit(ctx, "driver-1", 0, nil, first)
		assert.ErrorIs(t, err, sentinel.ErrConflict, "another writer created the head first")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation on insert is a conflict", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE driver_heads")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO duty_status_entries")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "one_open_entry_per_driver"})
		mock.ExpectRollback()

		err := st.Commit(ctx, "driver-1", 1, nil, next)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins the caller's transaction", func(t *testing.T) {
		st, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE driver_heads")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO duty_status_entries")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		outer, err := st.db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, st.Commit(tx.WithTx(ctx, outer), "driver-1", 1, nil, next))
		require.NoError(t, outer.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresMarkCertified(t *testing.T) {
	ctx := context.Background()
	entryID := id.NewEntryID()
	at := t0.Add(10 * time.Hour)

	st, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET certified_at = $2")).
		WithArgs(uuid.UUID(entryID), at, "driver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET certified_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	row := openRow(entryID, 1, "ON_DUTY", t0)
	row[5] = t0.Add(time.Hour)
	row[10] = at
	row[11] = "driver-1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(row...))

	require.NoError(t, st.MarkCertified(ctx, entryID, at, "driver-1"))
	err := st.MarkCertified(ctx, entryID, at, "driver-1")
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresScan(t *testing.T) {
	ctx := context.Background()
	first, second, overlay := id.NewEntryID(), id.NewEntryID(), id.NewEntryID()
	amendment := id.NewAmendmentID()

	st, mock := newMock(t)
	closedRow := openRow(first, 1, "ON_DUTY", t0)
	closedRow[5] = t0.Add(time.Hour)
	overlayRow := openRow(overlay, 3, "OFF_DUTY", t0)
	overlayRow[5] = t0.Add(time.Hour)
	overlayRow[7] = "EDITED"
	overlayRow[12] = uuid.UUID(first).String()
	overlayRow[13] = uuid.UUID(amendment).String()

	mock.ExpectQuery(regexp.QuoteMeta("amends_entry_id IN (SELECT id FROM hit)")).
		WithArgs("driver-1", t0).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(closedRow...).
			AddRow(openRow(second, 2, "DRIVING", t0.Add(time.Hour))...).
			AddRow(overlayRow...))

	var got []models.Entry
	for e, err := range st.Scan(ctx, "driver-1", t0, time.Time{}) {
		require.NoError(t, err)
		got = append(got, e)
	}
	require.Len(t, got, 3)
	assert.Equal(t, first, got[0].ID)
	assert.False(t, got[0].IsOpen())
	assert.True(t, got[1].IsOpen())
	require.NotNil(t, got[2].AmendsEntry)
	assert.Equal(t, first, *got[2].AmendsEntry)
	assert.Equal(t, amendment, *got[2].AmendmentID)
	assert.Equal(t, models.SourceEdited, got[2].DataSource)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresScanStopsEarly(t *testing.T) {
	ctx := context.Background()
	st, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("start_time < $3")).
		WithArgs("driver-1", t0, t0.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(openRow(id.NewEntryID(), 1, "ON_DUTY", t0)...).
			AddRow(openRow(id.NewEntryID(), 2, "DRIVING", t0)...))

	n := 0
	for _, err := range st.Scan(ctx, "driver-1", t0, t0.Add(24*time.Hour)) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSupersededBy(t *testing.T) {
	ctx := context.Background()
	target := id.NewEntryID()
	st, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE amends_entry_id = $1")).
		WithArgs(uuid.UUID(target)).
		WillReturnRows(sqlmock.NewRows(entryCols))

	_, err := st.SupersededBy(ctx, target)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
