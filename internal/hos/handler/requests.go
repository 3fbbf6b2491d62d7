package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

type appendRequest struct {
	Status           string          `json:"status"`
	At               time.Time       `json:"at"`
	Source           string          `json:"source,omitempty"`
	Metadata         models.Metadata `json:"metadata"`
	ExpectedSequence *int64          `json:"expected_sequence,omitempty"`
	RuleSet          string          `json:"rule_set,omitempty"`
}

type appendResponse struct {
	Entry *models.Entry `json:"entry"`
	// Compliance is nil when the post-append check failed; clients must then
	// treat the driver as unable to drive. ComplianceError carries the code of
	// that failure, including violations that could not be persisted.
	Compliance      *models.ComplianceSnapshot `json:"compliance"`
	ComplianceError string                     `json:"compliance_error,omitempty"`
	Violations      []models.Violation         `json:"new_violations,omitempty"`
}

type certifyDayRequest struct {
	Day string `json:"day"`
	TZ  string `json:"tz,omitempty"`
}

type submitAmendmentRequest struct {
	Reason         string    `json:"reason"`
	ProposedStatus string    `json:"proposed_status"`
	ProposedStart  time.Time `json:"proposed_start"`
	ProposedEnd    time.Time `json:"proposed_end"`
}

type decideAmendmentRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note,omitempty"`
}

type resolveViolationRequest struct {
	Note string `json:"note"`
}

// failClosedResponse is written when a snapshot cannot be computed.
type failClosedResponse struct {
	Error    string `json:"error"`
	CanDrive bool   `json:"can_drive"`
	CanWork  bool   `json:"can_work"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

func driverParam(r *http.Request) (id.DriverID, error) {
	return id.ParseDriverID(chi.URLParam(r, "driverID"))
}

// timeParam parses an RFC 3339 query value. Missing values yield the zero
// time.
func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid time").WithDetail(name, raw)
	}
	return t, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid boolean").WithDetail(name, raw)
	}
	return b, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid integer").WithDetail(name, raw)
	}
	return n, nil
}
