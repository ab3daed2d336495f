// Package repository defines the classification result store and errors.
package repository

import "time"

// Option applies a configuration option to the LRUStore.
type Option func(*LRUStore)

// WithCapacity bounds the number of stored entries.
func WithCapacity(n int) Option {
	return func(s *LRUStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithTTL sets the maximum age of an entry before it reads as a miss.
func WithTTL(d time.Duration) Option {
	return func(s *LRUStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source. Tests use this to age entries
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *LRUStore) {
		if now != nil {
			s.clock = now
		}
	}
}
