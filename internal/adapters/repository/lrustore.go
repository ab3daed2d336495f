package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/pkg/metrics"
)

// LRU-list-over-map Store implementation.
//
// A doubly-linked list threads every entry from most to least recently
// used and a map gives O(1) lookup by key. Both structures are mutated
// only under a single mutex; every critical section is a handful of
// pointer swaps, never anything long-running. Expiry is lazy: an entry
// older than the TTL reads as a miss and is dropped at that point, so
// there is no background sweeper to coordinate with.

// Default sizing for the store.
const (
	defaultCapacity = 4096
	defaultTTL      = time.Hour
)

// lruNode is one entry threaded through the recency list.
type lruNode struct {
	key          string
	result       model.Result
	storedAt     time.Time
	lastAccessed time.Time
	prev, next   *lruNode
}

// LRUStore is a bounded, TTL-aware result store.
type LRUStore struct {
	mu          sync.Mutex
	capacity    int
	ttl         time.Duration
	byKey       map[string]*lruNode
	head        *lruNode // most recently used
	tail        *lruNode // least recently used
	evictions   uint64
	expirations uint64
	clock       func() time.Time
}

// NewLRUStore constructs a store with configuration options.
func NewLRUStore(opts ...Option) *LRUStore {
	s := &LRUStore{
		capacity: defaultCapacity,
		ttl:      defaultTTL,
		clock:    time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.byKey = make(map[string]*lruNode, s.capacity)

	metrics.UpdateCacheCapacity(s.capacity)
	metrics.UpdateCacheEntries(0)

	return s
}

// Get implements Store.Get in O(1).
func (s *LRUStore) Get(ctx context.Context, key string) (model.Result, error) {
	s.mu.Lock()

	n, ok := s.byKey[key]
	if !ok {
		s.mu.Unlock()
		return model.Result{}, ErrNotFound
	}

	now := s.clock()
	if s.ttl > 0 && now.Sub(n.storedAt) > s.ttl {
		s.unlink(n)
		delete(s.byKey, key)
		s.expirations++
		size := len(s.byKey)
		s.mu.Unlock()

		metrics.RecordCacheExpiration()
		metrics.UpdateCacheEntries(size)
		return model.Result{}, ErrExpired
	}

	n.lastAccessed = now
	s.moveToFront(n)
	res := n.result
	s.mu.Unlock()
	return res, nil
}

// Put implements Store.Put in O(1).
func (s *LRUStore) Put(ctx context.Context, key string, res model.Result) error {
	now := s.clock()

	s.mu.Lock()
	if n, ok := s.byKey[key]; ok {
		// Refresh in place; a newer result restarts the TTL window.
		n.result = res
		n.storedAt = now
		n.lastAccessed = now
		s.moveToFront(n)
		s.mu.Unlock()
		return nil
	}

	evicted := 0
	for len(s.byKey) >= s.capacity {
		lru := s.tail
		if lru == nil {
			break
		}
		s.unlink(lru)
		delete(s.byKey, lru.key)
		s.evictions++
		evicted++
	}

	n := &lruNode{key: key, result: res, storedAt: now, lastAccessed: now}
	s.byKey[key] = n
	s.pushFront(n)
	size := len(s.byKey)
	s.mu.Unlock()

	// Update metrics outside the lock
	for i := 0; i < evicted; i++ {
		metrics.RecordCacheEviction()
	}
	metrics.UpdateCacheEntries(size)
	return nil
}

// Stats implements Store.Stats.
func (s *LRUStore) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries:     len(s.byKey),
		Capacity:    s.capacity,
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}

// Recency-list helpers. Callers hold mu.

func (s *LRUStore) pushFront(n *lruNode) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *LRUStore) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (s *LRUStore) moveToFront(n *lruNode) {
	if s.head == n {
		return
	}
	s.unlink(n)
	s.pushFront(n)
}
