package classifier

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
)

// Built-in english sentiment head, used when no weight file is
// configured.
//
//go:embed default_weights.json
var defaultWeights []byte

// readBackoff is the initial Fibonacci backoff between weight file
// read attempts.
const readBackoff = 250 * time.Millisecond

// readAttempts bounds retries for transient read failures.
const readAttempts = 3

// Weights is the persisted form of a linear sentiment head: one
// weight per feature bucket plus a bias term.
type Weights struct {
	Name    string    `json:"name"`
	Dim     int       `json:"dim"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// LoadWeights reads and validates model weights. An empty path selects
// the built-in model. File reads are retried with Fibonacci backoff;
// missing files and permission failures abort immediately.
func LoadWeights(ctx context.Context, path string) (Weights, error) {
	raw := defaultWeights
	if path != "" {
		data, err := readWeightFile(ctx, path)
		if err != nil {
			return Weights{}, fmt.Errorf("%w: read %q: %w", ErrWeights, path, err)
		}
		raw = data
	}

	var w Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return Weights{}, fmt.Errorf("%w: parse: %w", ErrWeights, err)
	}
	if err := w.validate(); err != nil {
		return Weights{}, err
	}

	return w, nil
}

func readWeightFile(ctx context.Context, path string) ([]byte, error) {
	var raw []byte

	b := retry.NewFibonacci(readBackoff)
	err := retry.Do(ctx, retry.WithMaxRetries(readAttempts, b), func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
				return err
			}
			return retry.RetryableError(err)
		}
		raw = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// validate rejects weights the scorer cannot use.
func (w *Weights) validate() error {
	switch {
	case w.Name == "":
		return fmt.Errorf("%w: model name is empty", ErrWeights)
	case w.Dim < 1:
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrWeights, w.Dim)
	case len(w.Weights) != w.Dim:
		return fmt.Errorf("%w: %d weights for dimension %d", ErrWeights, len(w.Weights), w.Dim)
	}

	return nil
}
