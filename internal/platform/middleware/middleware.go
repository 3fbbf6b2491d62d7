// Package middleware holds the HTTP middleware shared by the API router.
//
// Chain order in cmd/server: chi's RequestID and Recoverer, then
// RequestContext, Logger, and RequireActor on mutating routes.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	id "fleetops/pkg/domain"
	"fleetops/pkg/requestcontext"
)

// ActorHeader carries the authenticated actor set by the upstream gateway.
const ActorHeader = "X-Actor-ID"

const maxActorLength = 128

// RequestContext copies the chi request id, the request time and the actor
// header into the context read by services.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithTime(ctx, time.Now())
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" && len(actor) <= maxActorLength {
			ctx = requestcontext.WithActorID(ctx, id.ActorID(actor))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger writes one structured line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			ctx := r.Context()
			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(ctx),
				"actor_id", string(requestcontext.ActorID(ctx)),
			)
		})
	}
}

// RequireActor rejects requests that carry no actor identity.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.ActorID(ctx) != "" {
				next.ServeHTTP(w, r)
				return
			}
			logger.WarnContext(ctx, "unauthorized access - missing actor",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, err := w.Write([]byte(`{"error":"unauthorized","error_description":"Missing X-Actor-ID header"}`))
			if err != nil {
				logger.ErrorContext(ctx, "failed to write unauthorized response",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		})
	}
}
