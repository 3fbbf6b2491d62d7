package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "fleetops/pkg/domain"
	"fleetops/pkg/requestcontext"
)

func TestRequestContext(t *testing.T) {
	var (
		actor id.ActorID
		reqID string
	)
	h := chimw.RequestID(RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
		reqID = requestcontext.RequestID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "  dispatcher-7 ")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, id.ActorID("dispatcher-7"), actor)
	assert.NotEmpty(t, reqID)
}

func TestRequestContextIgnoresOversizedActor(t *testing.T) {
	var actor id.ActorID
	h := RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = requestcontext.ActorID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, strings.Repeat("a", maxActorLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, actor)
}

func TestRequireActor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	called := false
	h := RequestContext(RequireActor(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("missing actor is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/drivers/d1/status", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("actor passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/drivers/d1/status", nil)
		req.Header.Set(ActorHeader, "driver-1")
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, called)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/healthz", line["path"])
	assert.EqualValues(t, http.StatusCreated, line["status"])
}
