// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// defaultMaxBodyBytes caps analyze request bodies when no explicit limit
// is configured. Generous next to the text cap; the service enforces the
// real byte budget after trimming.
const defaultMaxBodyBytes = 1 << 20

// AnalyzeHandler handles classification requests.
type AnalyzeHandler struct {
	deps         Dependencies
	maxBodyBytes int64
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies, maxBodyBytes int64) *AnalyzeHandler {
	if maxBodyBytes < 1 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &AnalyzeHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	res, err := h.deps.Analyze(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
