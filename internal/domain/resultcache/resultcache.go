// Package resultcache provides the serving path for classification
// results: bounded caching plus single-flight computation so identical
// texts hit the model at most once at a time.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sentiolabs/sentio/internal/adapters/repository"
	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/pkg/logger"
	"github.com/sentiolabs/sentio/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultModelTimeout = 5 * time.Second
)

// ComputeFunc produces a result for a text that is not cached.
type ComputeFunc func(ctx context.Context, text string) (model.Result, error)

// Cache serves classification results, computing each distinct text at
// most once regardless of how many callers ask concurrently.
type Cache interface {
	// GetOrCompute returns the cached result for text, or runs compute
	// once per key and caches the outcome. Failed computations are
	// never cached, so a later request retries.
	GetOrCompute(ctx context.Context, text string, compute ComputeFunc) (model.Result, error)
}

// inMemoryCache implements Cache over a bounded store, with an
// in-flight group merging duplicate computations.
type inMemoryCache struct {
	store        repository.Store
	group        singleflight.Group
	modelTimeout time.Duration
	logger       logger.Logger
}

// NewInMemoryCache creates a cache backed by store.
func NewInMemoryCache(store repository.Store, opts ...Option) Cache {
	c := &inMemoryCache{
		store:        store,
		modelTimeout: defaultModelTimeout,
		logger:       logger.Get().Named("resultcache"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrCompute implements Cache.
func (c *inMemoryCache) GetOrCompute(ctx context.Context, text string, compute ComputeFunc) (model.Result, error) {
	key := hashKey(text)

	res, err := c.store.Get(ctx, key)
	if err == nil {
		metrics.RecordCacheHit()
		return res, nil
	}
	if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrExpired) {
		// Store trouble reads as a miss; the request can still be served.
		c.logger.Warn(ctx, "cache read failed", logger.Error(err))
	}
	metrics.RecordCacheMiss()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.runCompute(ctx, key, text, compute)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return model.Result{}, r.Err
		}
		if r.Shared {
			metrics.RecordInflightMerged()
		}
		out, ok := r.Val.(model.Result)
		if !ok {
			return model.Result{}, fmt.Errorf("unexpected in-flight value type %T", r.Val)
		}
		return out, nil
	case <-ctx.Done():
		// Stop waiting. The in-flight computation keeps going for any
		// remaining callers and still lands in the cache.
		return model.Result{}, ctx.Err()
	}
}

// runCompute is the single-flight leader: it classifies the text,
// caches a successful result, and shares whatever happened with every
// merged caller.
func (c *inMemoryCache) runCompute(ctx context.Context, key, text string, compute ComputeFunc) (interface{}, error) {
	// Detach from the calling request. Followers may still want this
	// result after the first caller gives up, so only the model
	// timeout bounds the computation.
	computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.modelTimeout)
	defer cancel()

	res, err := compute(computeCtx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	}

	if putErr := c.store.Put(context.WithoutCancel(ctx), key, res); putErr != nil {
		// Serve the result anyway; only the reuse is lost.
		c.logger.Warn(ctx, "cache write failed", logger.Error(putErr))
	}

	return res, nil
}

// hashKey derives the cache key for a text. Hashing keeps keys a fixed
// size and avoids retaining whole request bodies in the store's index.
func hashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
