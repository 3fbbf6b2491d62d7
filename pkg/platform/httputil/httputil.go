// Package httputil holds the JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "fleetops/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a JSON error body. Internal errors never
// leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	resp := errorResponse{Error: string(code)}
	if status >= http.StatusInternalServerError {
		resp.Error = "internal_error"
		if code == dErrors.CodeUnavailable || code == dErrors.CodeTimeout {
			resp.Error = string(code)
		}
	} else {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
			resp.Details = de.Details
		}
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON decodes a bounded request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
