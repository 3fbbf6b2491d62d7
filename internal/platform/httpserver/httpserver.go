package httpserver

import (
	"net/http"
	"time"
)

// Option adjusts the server before it is returned.
type Option func(*http.Server)

// WithWriteTimeout bounds a whole response. It must exceed the ledger
// transaction timeout or appends are cut off mid-commit.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// New builds the API server.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
