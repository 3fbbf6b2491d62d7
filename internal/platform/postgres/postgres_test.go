package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCoversStores(t *testing.T) {
	for _, table := range []string{"driver_heads", "duty_status_entries", "amendment_requests", "violations", "outbox"} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema(), "one_pending_amendment_per_entry")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS driver_heads")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
