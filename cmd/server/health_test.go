package main

import (
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/pkg/testutil"
)

func TestHealthHandler(t *testing.T) {
	t.Run("memory-only instance is healthy", func(t *testing.T) {
		rr := testutil.DoRequest(healthHandler(&infra{}), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("database ping failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		rr := testutil.DoRequest(healthHandler(&infra{db: db}), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["postgres"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoadRuleSets(t *testing.T) {
	log := testLogger()

	t.Run("built-in catalog", func(t *testing.T) {
		h, err := loadRuleSets(hosConfig("", "us-interstate"), log)
		require.NoError(t, err)
		_, err = h.Resolve("us-interstate")
		assert.NoError(t, err)
	})

	t.Run("unknown default is rejected at startup", func(t *testing.T) {
		_, err := loadRuleSets(hosConfig("", "nowhere"), log)
		assert.Error(t, err)
	})
}
