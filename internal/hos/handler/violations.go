package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/httputil"
	xstrings "fleetops/pkg/platform/strings"
	"fleetops/pkg/requestcontext"
)

func (h *Handler) handleListViolations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.ViolationFilter
	if raw := q.Get("driver_id"); raw != "" {
		driverID, err := id.ParseDriverID(raw)
		if err != nil {
			h.fail(w, r, "invalid violations query", err)
			return
		}
		filter.DriverID = driverID
	}
	if raw := q.Get("severity"); raw != "" {
		sev, err := models.ParseSeverity(raw)
		if err != nil {
			h.fail(w, r, "invalid violations query", err)
			return
		}
		filter.Severity = sev
	}
	for _, raw := range xstrings.SplitUpperList(q.Get("kind")) {
		kind, err := models.ParseViolationKind(raw)
		if err != nil {
			h.fail(w, r, "invalid violations query", err)
			return
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	unresolved, err := boolParam(r, "unresolved")
	if err != nil {
		h.fail(w, r, "invalid violations query", err)
		return
	}
	filter.UnresolvedOnly = unresolved
	if filter.Since, err = timeParam(r, "since"); err != nil {
		h.fail(w, r, "invalid violations query", err)
		return
	}
	if filter.Limit, err = intParam(r, "limit"); err != nil {
		h.fail(w, r, "invalid violations query", err)
		return
	}

	out, err := h.violations.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "failed to list violations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newList(out))
}

func (h *Handler) handleResolveViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	violationID, err := id.ParseViolationID(chi.URLParam(r, "violationID"))
	if err != nil {
		h.fail(w, r, "invalid violation id", err)
		return
	}
	var req resolveViolationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid resolve request", err)
		return
	}
	resolved, err := h.compliance.ResolveViolation(ctx, violationID, requestcontext.ActorID(ctx), req.Note)
	if err != nil {
		h.fail(w, r, "resolve rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolved)
}
