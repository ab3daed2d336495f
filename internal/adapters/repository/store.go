// Package repository defines the classification result store and errors.
package repository

import (
	"context"

	"github.com/sentiolabs/sentio/internal/domain/model"
)

// Stats is a point-in-time summary of store behavior.
type Stats struct {
	Entries     int
	Capacity    int
	Evictions   uint64
	Expirations uint64
}

// Store provides bounded, recency-aware storage for classification results.
type Store interface {
	// Get returns the result stored under key and marks it most recently
	// used. Returns ErrNotFound for absent keys and ErrExpired when the
	// entry outlived its time-to-live (the entry is dropped on the spot).
	Get(ctx context.Context, key string) (model.Result, error)

	// Put stores the result under key. When the store is full the least
	// recently used entry is evicted to make room.
	Put(ctx context.Context, key string, res model.Result) error

	// Stats reports entry count, capacity, and eviction bookkeeping.
	Stats(ctx context.Context) Stats
}
