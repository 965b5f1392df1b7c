package handlers

import (
	"context"
	"net/http"

	"github.com/streamhub/backend/internal/logging"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	payload := map[string]string{
		"status":   "ok",
		"database": "ok",
	}
	status := http.StatusOK

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			logging.FromContext(ctx).Error("database ping failed", "error", err)
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	respondJSON(ctx, w, status, payload)
}
