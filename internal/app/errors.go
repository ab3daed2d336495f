package service

import "errors"

// Error kinds returned by the service. The HTTP layer maps these to
// status codes with errors.Is.
var (
	// ErrValidation marks a request rejected before reaching the model.
	ErrValidation = errors.New("invalid request")

	// ErrNotReady marks a request that cannot be served because model
	// loading has not succeeded.
	ErrNotReady = errors.New("model not ready")

	// ErrInference marks a classification that failed inside the pipeline.
	ErrInference = errors.New("inference failed")
)
