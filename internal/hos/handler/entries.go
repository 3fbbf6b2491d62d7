package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetops/internal/hos/calculator"
	"fleetops/internal/hos/ledger"
	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/httputil"
	"fleetops/pkg/requestcontext"
)

// handleAppend records a status change and re-checks compliance.
func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	var req appendRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid append request", err)
		return
	}
	status, err := models.ParseDutyStatus(req.Status)
	if err != nil {
		h.fail(w, r, "invalid append request", err)
		return
	}
	source, err := models.ParseDataSource(req.Source)
	if err != nil {
		h.fail(w, r, "invalid append request", err)
		return
	}

	entry, err := h.ledger.Append(ctx, ledger.AppendCommand{
		DriverID:         driverID,
		Status:           status,
		At:               req.At,
		Metadata:         req.Metadata,
		Source:           source,
		RecordedBy:       requestcontext.ActorID(ctx),
		ExpectedSequence: req.ExpectedSequence,
	})
	if err != nil {
		h.fail(w, r, "append rejected", err)
		return
	}

	resp := appendResponse{Entry: entry}
	snap, recorded, err := h.compliance.Check(ctx, calculator.Request{
		DriverID:   driverID,
		RuleSetKey: req.RuleSet,
		Now:        requestcontext.Now(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance check after append failed",
			"request_id", requestcontext.RequestID(ctx),
			"driver_id", driverID,
			"entry_id", entry.ID.String(),
			"error", err,
		)
		resp.ComplianceError = string(dErrors.CodeOf(err))
	} else {
		resp.Compliance = snap
		resp.Violations = recorded
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	entry, err := h.ledger.CurrentEntry(r.Context(), driverID)
	if err != nil {
		h.fail(w, r, "failed to load current status", err)
		return
	}
	if entry == nil {
		h.fail(w, r, "no current status", dErrors.New(dErrors.CodeNotFound, "driver has no open entry").
			WithDetail("driver_id", string(driverID)))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// handleListEntries lists entries intersecting [from, to). from defaults to
// the start of the current local day; a missing to is unbounded.
func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	from, err := timeParam(r, "from")
	if err != nil {
		h.fail(w, r, "invalid entries query", err)
		return
	}
	to, err := timeParam(r, "to")
	if err != nil {
		h.fail(w, r, "invalid entries query", err)
		return
	}
	if from.IsZero() {
		y, m, d := requestcontext.Now(ctx).In(h.loc).Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, h.loc)
	}
	if !to.IsZero() && !to.After(from) {
		h.fail(w, r, "invalid entries query", dErrors.New(dErrors.CodeInvalidInput, "to must be after from"))
		return
	}
	entries, err := h.ledger.Entries(ctx, driverID, from, to)
	if err != nil {
		h.fail(w, r, "failed to list entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newList(entries))
}

func (h *Handler) handleCertify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		h.fail(w, r, "invalid entry id", err)
		return
	}
	entry, err := h.ledger.Certify(ctx, entryID, requestcontext.ActorID(ctx))
	if err != nil {
		h.fail(w, r, "certify rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleCertifyDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	var req certifyDayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid certify-day request", err)
		return
	}
	loc, err := h.location(req.TZ)
	if err != nil {
		h.fail(w, r, "invalid certify-day request", err)
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, req.Day, loc)
	if err != nil {
		h.fail(w, r, "invalid certify-day request",
			dErrors.Wrap(err, dErrors.CodeInvalidInput, "day must be YYYY-MM-DD").WithDetail("day", req.Day))
		return
	}
	certified, err := h.ledger.CertifyDay(ctx, driverID, day, loc, requestcontext.ActorID(ctx))
	if err != nil {
		h.fail(w, r, "certify-day rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newList(certified))
}
