// Package handler exposes the HOS engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetops/internal/hos/amendment"
	"fleetops/internal/hos/calculator"
	"fleetops/internal/hos/ledger"
	"fleetops/internal/hos/models"
	"fleetops/internal/platform/middleware"
	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/platform/httputil"
	"fleetops/pkg/requestcontext"
)

// Ledger is the duty-status ledger.
type Ledger interface {
	Append(ctx context.Context, cmd ledger.AppendCommand) (*models.Entry, error)
	CurrentEntry(ctx context.Context, driverID id.DriverID) (*models.Entry, error)
	Entries(ctx context.Context, driverID id.DriverID, from, to time.Time) ([]models.Entry, error)
	Certify(ctx context.Context, entryID id.EntryID, actor id.ActorID) (*models.Entry, error)
	CertifyDay(ctx context.Context, driverID id.DriverID, day time.Time, loc *time.Location, actor id.ActorID) ([]models.Entry, error)
}

// Compliance computes snapshots and resolves violations.
type Compliance interface {
	Compute(ctx context.Context, req calculator.Request) (*models.ComplianceSnapshot, error)
	Check(ctx context.Context, req calculator.Request) (*models.ComplianceSnapshot, []models.Violation, error)
	ResolveViolation(ctx context.Context, violationID id.ViolationID, actor id.ActorID, note string) (*models.Violation, error)
}

// Amendments is the amendment workflow.
type Amendments interface {
	Submit(ctx context.Context, cmd amendment.SubmitCommand) (*models.AmendmentRequest, error)
	Decide(ctx context.Context, cmd amendment.DecideCommand) (*models.AmendmentRequest, error)
	List(ctx context.Context, driverID id.DriverID, state models.AmendmentState) ([]models.AmendmentRequest, error)
}

// Violations reads the stored violation record.
type Violations interface {
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error)
}

// Handler serves the /v1 API.
type Handler struct {
	ledger     Ledger
	compliance Compliance
	amendments Amendments
	violations Violations
	logger     *slog.Logger
	loc        *time.Location
}

type Option func(*Handler)

// WithLocation sets the zone used when a request names none.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// New creates a new HOS Handler.
func New(
	ledger Ledger,
	compliance Compliance,
	amendments Amendments,
	violations Violations,
	logger *slog.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		ledger:     ledger,
		compliance: compliance,
		amendments: amendments,
		violations: violations,
		logger:     logger,
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r. Mutations require an actor.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/drivers/{driverID}/status", h.handleCurrentStatus)
		r.Get("/drivers/{driverID}/entries", h.handleListEntries)
		r.Get("/drivers/{driverID}/compliance", h.handleCompliance)
		r.Get("/drivers/{driverID}/amendments", h.handleListAmendments)
		r.Get("/violations", h.handleListViolations)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor(h.logger))
			r.Post("/drivers/{driverID}/status", h.handleAppend)
			r.Post("/drivers/{driverID}/certify-day", h.handleCertifyDay)
			r.Post("/entries/{entryID}/certify", h.handleCertify)
			r.Post("/entries/{entryID}/amendments", h.handleSubmitAmendment)
			r.Post("/amendments/{amendmentID}/decision", h.handleDecideAmendment)
			r.Post("/violations/{violationID}/resolve", h.handleResolveViolation)
		})
	})
}

// fail writes err, logging server-side failures at error level and client
// mistakes at warn.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"path", r.URL.Path,
		"error", err,
	}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) location(name string) (*time.Location, error) {
	if name == "" {
		return h.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown time zone").WithDetail("tz", name)
	}
	return loc, nil
}
