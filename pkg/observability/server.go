package observability

import (
	"errors"
	"net/http"
)

var errProviderMissing = errors.New("completion provider credential not configured")

// Mount registers the health and metrics endpoints on mux
func Mount(mux *http.ServeMux, hc *HealthChecker) {
	mux.HandleFunc("GET /health", hc.HealthHandler())
	mux.HandleFunc("GET /health/live", hc.LivenessHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadinessHandler())

	mux.Handle("GET /metrics", MetricsHandler())
}
