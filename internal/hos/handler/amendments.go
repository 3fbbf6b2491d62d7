package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetops/internal/hos/amendment"
	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/httputil"
	"fleetops/pkg/requestcontext"
)

func (h *Handler) handleSubmitAmendment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		h.fail(w, r, "invalid entry id", err)
		return
	}
	var req submitAmendmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid amendment request", err)
		return
	}
	status, err := models.ParseDutyStatus(req.ProposedStatus)
	if err != nil {
		h.fail(w, r, "invalid amendment request", err)
		return
	}
	created, err := h.amendments.Submit(ctx, amendment.SubmitCommand{
		TargetEntryID: entryID,
		RequestedBy:   requestcontext.ActorID(ctx),
		Reason:        req.Reason,
		Proposal: models.Proposal{
			Status: status,
			Start:  req.ProposedStart,
			End:    req.ProposedEnd,
		},
	})
	if err != nil {
		h.fail(w, r, "amendment rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDecideAmendment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	amendmentID, err := id.ParseAmendmentID(chi.URLParam(r, "amendmentID"))
	if err != nil {
		h.fail(w, r, "invalid amendment id", err)
		return
	}
	var req decideAmendmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid decision request", err)
		return
	}
	decision := models.AmendmentState(req.Decision)
	if !decision.IsTerminal() {
		h.fail(w, r, "invalid decision request", dErrors.New(dErrors.CodeValidation, "decision must be APPROVED or REJECTED").
			WithDetail("decision", req.Decision))
		return
	}
	decided, err := h.amendments.Decide(ctx, amendment.DecideCommand{
		AmendmentID: amendmentID,
		Decision:    decision,
		DecidedBy:   requestcontext.ActorID(ctx),
		Note:        req.Note,
	})
	if err != nil {
		h.fail(w, r, "decision rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decided)
}

// handleListAmendments lists a driver's requests, optionally by ?state=.
func (h *Handler) handleListAmendments(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverParam(r)
	if err != nil {
		h.fail(w, r, "invalid driver id", err)
		return
	}
	state := models.AmendmentState(r.URL.Query().Get("state"))
	if state != "" && state != models.AmendmentPending && !state.IsTerminal() {
		h.fail(w, r, "invalid amendments query", dErrors.New(dErrors.CodeInvalidInput, "invalid state").
			WithDetail("state", string(state)))
		return
	}
	out, err := h.amendments.List(r.Context(), driverID, state)
	if err != nil {
		h.fail(w, r, "failed to list amendments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newList(out))
}
