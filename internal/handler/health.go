package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the liveness of the engine and its dependencies.
type HealthHandler struct {
	sandbox Pinger
	storage Pinger
}

// NewHealthHandler creates a HealthHandler. Either dependency may be nil,
// in which case it is reported as disabled.
func NewHealthHandler(sandbox, storage Pinger) *HealthHandler {
	return &HealthHandler{sandbox: sandbox, storage: storage}
}

// HandleHealth returns the service status. The overall status degrades when
// any dependency is unreachable, but the endpoint itself always answers 200
// so load balancers can distinguish "up but degraded" from "down".
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	services := map[string]string{
		"sandbox": checkPinger(ctx, h.sandbox),
		"storage": checkPinger(ctx, h.storage),
	}

	status := "healthy"
	for _, state := range services {
		if state == "unavailable" {
			status = "degraded"
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"services": services,
	})
}

func checkPinger(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "available"
}
