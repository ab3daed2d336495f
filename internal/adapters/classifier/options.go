package classifier

// Option configures a LinearClassifier before its weights load.
type Option func(*LinearClassifier)

// WithWeightsPath loads weights from a JSON file instead of the
// built-in model. Empty paths are ignored.
func WithWeightsPath(path string) Option {
	return func(c *LinearClassifier) {
		if path != "" {
			c.path = path
		}
	}
}

// WithWeights injects already-built weights, skipping disk and embed
// loading. Tests use this to pin a known decision boundary.
func WithWeights(w Weights) Option {
	return func(c *LinearClassifier) {
		c.w = &w
	}
}
