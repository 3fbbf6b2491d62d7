package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fleetops/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "expected error_description to be omitted for internal errors")
	})

	t.Run("conflict includes description and details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := dErrors.New(dErrors.CodeConflict, "status change precedes open entry").
			WithDetail("driver_id", "drv-1").
			WithDetail("at", "2026-01-01T00:00:00Z")
		WriteError(w, err)

		require.Equal(t, http.StatusConflict, w.Code)
		var body struct {
			Error       string            `json:"error"`
			Description string            `json:"error_description"`
			Details     map[string]string `json:"details"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "conflict", body.Error)
		assert.Equal(t, "status change precedes open entry", body.Description)
		assert.Equal(t, "drv-1", body.Details["driver_id"])
	})

	t.Run("untyped error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"DRIVING","bogus":1}`))
	var dst struct {
		Status string `json:"status"`
	}
	err := DecodeJSON(req, &dst)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
