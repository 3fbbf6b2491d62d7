// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
// Usage in services (read values):
//
//	actor := requestcontext.ActorID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActorID(ctx, "dispatcher-7")
package requestcontext

import (
	"context"
	"time"

	id "fleetops/pkg/domain"
)

type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated actor from the context.
// Returns the empty id if not set.
func ActorID(ctx context.Context) id.ActorID {
	if actor, ok := ctx.Value(ContextKeyActorID).(id.ActorID); ok {
		return actor
	}
	return ""
}

// WithActorID injects the authenticated actor into the context.
func WithActorID(ctx context.Context, actor id.ActorID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actor)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
