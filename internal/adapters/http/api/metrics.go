// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentiolabs/sentio/pkg/metrics"
)

// MetricsHandler serves the Prometheus exposition endpoint.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler creates a new metrics handler backed by the custom
// metrics registry.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{
		handler: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics handles GET /metrics requests.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
