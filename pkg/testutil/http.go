// Package testutil holds HTTP, context and BDD helpers shared by handler and
// service tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewJSONRequest marshals body (when non-nil) into a JSON request.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody sends body verbatim, for malformed-payload cases.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// decode drains the recorder body, so each response can be decoded once.
func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	raw, err := io.ReadAll(rr.Body)
	require.NoError(t, err, "read response body")
	require.NoError(t, json.Unmarshal(raw, dst), "decode response: %s", raw)
}

// UnmarshalResponse decodes the body into a fresh T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	decode(t, rr, &out)
	return &out
}

// UnmarshalErrorResponse decodes an error (or fail-closed) body as a map.
func UnmarshalErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	decode(t, rr, &out)
	return out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError checks the status and the "error" code of the body.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)
	assert.Equal(t, expectedCode, UnmarshalErrorResponse(t, rr)["error"], "unexpected error code")
}

// AssertErrorDetail checks the error code and one entry of its details.
func AssertErrorDetail(t *testing.T, rr *httptest.ResponseRecorder, expectedCode, key string, expected any) {
	t.Helper()
	body := UnmarshalErrorResponse(t, rr)
	assert.Equal(t, expectedCode, body["error"], "unexpected error code")
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "error has no details: %v", body)
	assert.Equal(t, expected, details[key], "unexpected detail %q", key)
}

// AssertJSONContains checks one top-level key of the body.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, expectedValue any) {
	t.Helper()
	body := UnmarshalErrorResponse(t, rr)
	assert.Equal(t, expectedValue, body[key], "unexpected value for key %q", key)
}

// AssertJSONHasKey checks that a top-level key is present, even if null.
func AssertJSONHasKey(t *testing.T, rr *httptest.ResponseRecorder, key string) {
	t.Helper()
	body := UnmarshalErrorResponse(t, rr)
	_, ok := body[key]
	assert.True(t, ok, "expected key %q not found in response", key)
}
