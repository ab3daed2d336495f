package resultcache

import "time"

// Option applies a configuration option to the in-memory cache.
type Option func(*inMemoryCache)

// WithModelTimeout bounds how long a detached computation may run
// after every caller has gone away.
func WithModelTimeout(d time.Duration) Option {
	return func(c *inMemoryCache) {
		if d > 0 {
			c.modelTimeout = d
		}
	}
}
