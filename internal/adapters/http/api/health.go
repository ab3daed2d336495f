// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests. The service is healthy once
// the model has finished loading; before that (or after a failed load)
// the endpoint answers 503 so orchestrators hold traffic.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	if !h.deps.Ready(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Loaded: false})
		return
	}

	info := h.deps.ModelInfo(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Model: info.Name, Loaded: true})
}
