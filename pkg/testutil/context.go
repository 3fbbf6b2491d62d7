package testutil

import (
	"net/http"
	"time"

	id "fleetops/pkg/domain"
	"fleetops/pkg/requestcontext"
)

// ActorHeader mirrors the gateway header read by the request middleware.
const ActorHeader = "X-Actor-ID"

// WithActor sets the actor header and injects the actor into the request
// context, the state a handler sees behind the middleware chain.
func WithActor(req *http.Request, actor string) *http.Request {
	req.Header.Set(ActorHeader, actor)
	ctx := requestcontext.WithActorID(req.Context(), id.ActorID(actor))
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
