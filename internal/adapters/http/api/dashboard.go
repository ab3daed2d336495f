package api

import (
	"io"
	"net/http"
)

// dashboardHandler serves the bundled metrics dashboard.
type dashboardHandler struct{}

// newdashboardHandler creates a new dashboard handler
func newdashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests.
// Returns an HTML page whose script polls /stats and /metrics for live numbers.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	// Equivalent of http.ServeFileFS, which requires Go 1.22; the build
	// toolchain is Go 1.21.
	f, err := dashboardFS.Open("dashboard.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "dashboard.html", fi.ModTime(), rs)
}
