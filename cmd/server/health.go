package main

import (
	"context"
	"net/http"
	"time"

	"fleetops/internal/platform/kafka"
	"fleetops/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthHandler pings every configured backing service. Any failure answers
// 503 so the instance is taken out of rotation.
func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		check := func(name string, err error) {
			if err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				return
			}
			resp.Checks[name] = "ok"
		}
		if in.db != nil {
			check("postgres", in.db.PingContext(ctx))
		}
		if in.redis != nil {
			check("redis", in.redis.Health(ctx))
		}
		if in.kafka != nil {
			check("kafka", kafka.Health(ctx, in.kafka))
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
