// Package worker defines worker contracts for asynchronous classification.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/sentiolabs/sentio/internal/adapters/mq/queue"
	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/pkg/logger"
	"github.com/sentiolabs/sentio/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Classifier computes a sentiment result for a text.
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Result, error)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *queue.Task
}

// Worker processes classification tasks and delivers outcomes to their
// submitters.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining tasks before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing tasks.
type InMemoryWorker struct {
	queue      Queue
	classifier Classifier
	name       string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, classifier Classifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		classifier: classifier,
		name:       "worker", // default name
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-taskChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			w.processTask(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processTask runs one task through the model and delivers the outcome
// to the submitter.
func (w *InMemoryWorker) processTask(ctx context.Context, task *queue.Task) {
	// Track overall processing latency
	metrics.IncrementWorkerActive()
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		metrics.DecrementWorkerActive()
	}()

	metrics.RecordQueueWait(float64(time.Since(task.EnqueuedAt).Milliseconds()))

	// The submitter's context bounds the task. If it expired while the
	// task sat in the queue, skip the model call.
	taskCtx := task.Context()
	if err := taskCtx.Err(); err != nil {
		task.Deliver(model.Result{}, err)
		return
	}

	inferStart := time.Now()
	res, err := w.classifier.Classify(taskCtx, task.Text)
	metrics.RecordInferenceLatency(float64(time.Since(inferStart).Milliseconds()))

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordInferenceTimeout()
		} else {
			metrics.RecordInferenceError()
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "inference_error")
		w.logger.Error(ctx, "classification failed for task",
			logger.String("taskID", task.ID),
			logger.Error(err),
		)
	}

	task.Deliver(res, err)
}

// Pool manages multiple workers.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	classifier Classifier

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, classifier Classifier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      queue,
		classifier: classifier,
		logger:     logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			classifier,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool. The queue is
// closed first, so workers drain whatever is already buffered before
// their dequeue channels close.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
