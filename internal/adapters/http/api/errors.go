package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/sentiolabs/sentio/internal/app"
	"github.com/sentiolabs/sentio/internal/domain/resultcache"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// writeServiceError translates the service error taxonomy into status
// codes: bad input is the client's fault, a missing model is temporary,
// a blown budget is a timeout, and everything else is on us.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "model_not_ready", err)
	case errors.Is(err, resultcache.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "inference_failed", err)
	}
}
