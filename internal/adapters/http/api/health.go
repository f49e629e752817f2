package api

import (
	"context"
	"net/http"

	"github.com/okian/techradar/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service can take traffic.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler handles health and readiness requests.
type HealthHandler struct {
	ready   ReadinessChecker
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		ready:   ready,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz and GET /metrics with the Prometheus
// exposition of the custom registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleReady handles GET /readyz. It fails with 503 while the store is unreachable.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.ready.Ready(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
