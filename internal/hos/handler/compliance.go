package handler

import (
	"net/http"

	"fleetops/internal/hos/calculator"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/httputil"
	"fleetops/pkg/requestcontext"
)

// handleCompliance computes the snapshot without persisting anything. A
// failure is answered with can_drive and can_work both false.
func (h *Handler) handleCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	q := r.URL.Query()
	loc, err := h.location(q.Get("tz"))
	if err != nil {
		h.fail(w, r, "invalid compliance query", err)
		return
	}
	at, err := timeParam(r, "at")
	if err != nil {
		h.fail(w, r, "invalid compliance query", err)
		return
	}
	now := requestcontext.Now(ctx)
	if at.IsZero() || at.After(now) {
		at = now
	}

	snap, err := h.compliance.Compute(ctx, calculator.Request{
		DriverID:   driverID,
		RuleSetKey: q.Get("ruleset"),
		Now:        at,
		Location:   loc,
	})
	if err != nil {
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeUnknownRuleSet || code == dErrors.CodeValidation || code == dErrors.CodeInvalidInput {
			h.fail(w, r, "invalid compliance query", err)
			return
		}
		h.logger.ErrorContext(ctx, "compliance status undetermined",
			"request_id", requestcontext.RequestID(ctx),
			"driver_id", driverID,
			"error", err,
		)
		httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), failClosedResponse{Error: string(code)})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
