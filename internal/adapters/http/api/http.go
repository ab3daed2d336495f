// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sentiolabs/sentio/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Analyze classifies a text, serving repeats from the result cache.
	Analyze(ctx context.Context, text string) (model.Result, error)

	// Ready reports whether the model has finished loading.
	Ready(ctx context.Context) bool

	// ModelInfo describes the model backing the service.
	ModelInfo(ctx context.Context) model.Info
}

// Server wires HTTP routes for the business API.
type Server struct {
	analyzeHandler   *AnalyzeHandler
	healthHandler    *HealthHandler
	modelsHandler    *ModelsHandler
	statsHandler     *StatsHandler
	metricsHandler   *MetricsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxBodyBytes caps
// request bodies on the analyze route; values under 1 select the default.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBodyBytes int64) *Server {
	return &Server{
		analyzeHandler:   NewAnalyzeHandler(deps, maxBodyBytes),
		healthHandler:    NewHealthHandler(deps),
		modelsHandler:    NewModelsHandler(deps),
		statsHandler:     NewStatsHandler(statsProvider),
		metricsHandler:   NewMetricsHandler(),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/analyze", chain(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/healthz", chain(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/models", chain(s.modelsHandler.HandleModels, "models"))
	mux.HandleFunc("/stats", chain(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
}

// chain applies the standard middleware stack to a business handler.
func chain(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(CORSMiddleware(MetricsMiddleware(h, endpoint)))
}

// analyzeRequest mirrors the OpenAPI schema for POST /analyze.
type analyzeRequest struct {
	Text string `json:"text"`
}

type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
	Loaded bool   `json:"loaded"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
