// Package queue defines the contract for dispatching classification
// tasks to the worker pool.
//
// Implementations may use channels or more advanced structures. The MVP
// will start with an in-memory bounded queue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Task is one classification request traveling to the worker pool.
// The submitter's context rides along so workers can skip work nobody
// is waiting for anymore.
type Task struct {
	ID         string
	Text       string
	EnqueuedAt time.Time

	ctx    context.Context
	result chan Outcome
}

// Outcome is what a worker delivers back for a task.
type Outcome struct {
	Result model.Result
	Err    error
}

// NewTask builds a task bound to the submitter's context.
func NewTask(ctx context.Context, text string) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Text:       text,
		EnqueuedAt: time.Now(),
		ctx:        ctx,
		result:     make(chan Outcome, 1),
	}
}

// Context returns the context the task was submitted under.
func (t *Task) Context() context.Context {
	if t.ctx != nil {
		return t.ctx
	}
	return context.Background()
}

// Deliver hands the outcome to the submitter. The result channel is
// buffered, so delivery does not block when the submitter has given up.
func (t *Task) Deliver(res model.Result, err error) {
	t.result <- Outcome{Result: res, Err: err}
}

// Wait blocks until a worker delivers the outcome or ctx expires.
func (t *Task) Wait(ctx context.Context) (model.Result, error) {
	select {
	case out := <-t.result:
		return out.Result, out.Err
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	}
}

// Queue provides blocking submit and channel-based dequeue semantics.
type Queue interface {
	// Submit adds a task to the queue. When the queue is full it
	// blocks until space frees, the queue closes, or ctx expires.
	Submit(ctx context.Context, t *Task) error

	// Dequeue returns a channel that will receive tasks as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan *Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new tasks can be submitted; already queued
	// tasks are still handed to consumers.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan *Task
	capacity int
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.tasks = make(chan *Task, q.capacity)
	q.done = make(chan struct{})

	// Initialize metrics
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueDepth(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Submit adds a task to the queue. A full queue exerts backpressure:
// the call blocks until a worker frees space or ctx expires, so the
// caller's deadline bounds the wait.
func (q *InMemoryQueue) Submit(ctx context.Context, t *Task) error {
	select {
	case <-q.done:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	default:
	}

	select {
	case q.tasks <- t:
		metrics.RecordQueueEnqueue()
		q.publishDepth()
		return nil
	case <-q.done:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_canceled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan *Task {
	// Wrap the channel to track dequeue metrics
	dequeueChan := make(chan *Task)
	go func() {
		defer close(dequeueChan)
		for {
			select {
			case t := <-q.tasks:
				select {
				case dequeueChan <- t:
					metrics.RecordQueueDequeue()
					q.publishDepth()
				case <-ctx.Done():
					return
				}
			case <-q.done:
				// Drain whatever is still buffered, then stop.
				for {
					select {
					case t := <-q.tasks:
						select {
						case dequeueChan <- t:
							metrics.RecordQueueDequeue()
							q.publishDepth()
						case <-ctx.Done():
							return
						}
					default:
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	depth := len(q.tasks)
	metrics.UpdateQueueDepth(depth)
	metrics.UpdateQueueUtilization(float64(depth) / float64(q.capacity))
	return depth
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	// The task channel itself is never closed; consumers stop through
	// the done channel, so a Submit racing Close cannot panic.
	q.closed = true
	close(q.done)

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishDepth() {
	depth := len(q.tasks)
	metrics.UpdateQueueDepth(depth)
	metrics.UpdateQueueUtilization(float64(depth) / float64(q.capacity))
}
