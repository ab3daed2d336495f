// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentiolabs/sentio/internal/adapters/classifier"
	taskqueue "github.com/sentiolabs/sentio/internal/adapters/mq/queue"
	workerpool "github.com/sentiolabs/sentio/internal/adapters/mq/worker"
	repository "github.com/sentiolabs/sentio/internal/adapters/repository"
	"github.com/sentiolabs/sentio/internal/domain/model"
	"github.com/sentiolabs/sentio/internal/domain/resultcache"
	"github.com/sentiolabs/sentio/pkg/logger"
	"github.com/sentiolabs/sentio/pkg/metrics"
)

// metricsInterval is how often background gauges are refreshed.
const metricsInterval = 5 * time.Second

// classifierAdapter bridges the service's model to the worker pool. The
// pool is wired up before the weights finish loading, so the lookup has
// to happen per task rather than at construction.
type classifierAdapter struct {
	svc *Service
}

func (a *classifierAdapter) Classify(ctx context.Context, text string) (model.Result, error) {
	a.svc.mu.RLock()
	c := a.svc.classifier
	a.svc.mu.RUnlock()

	if c == nil {
		return model.Result{}, ErrNotReady
	}
	return c.Classify(ctx, text)
}

// Service implements the API dependencies for the sentiment analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	cache      resultcache.Cache
	taskQueue  taskqueue.Queue
	classifier classifier.Classifier
	workerPool *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	cacheCap     int
	cacheTTL     time.Duration
	modelTimeout time.Duration
	maxTextBytes int
	modelPath    string

	// State
	started bool
	ready   chan struct{}
	loadErr error

	// Background tasks
	background *errgroup.Group
	bgCancel   context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of inference worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the inference task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheCapacity sets the maximum number of cached results.
func WithCacheCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.cacheCap = capacity
		}
	}
}

// WithCacheTTL sets how long a cached result stays servable.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithModelTimeout bounds a single classification, queue wait included.
func WithModelTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.modelTimeout = timeout
		}
	}
}

// WithMaxTextBytes caps the byte length of a classifiable text.
func WithMaxTextBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTextBytes = n
		}
	}
}

// WithModelPath points the service at a weight file on disk. Empty keeps
// the built-in weights.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithClassifier injects an already loaded model, skipping the weight
// loading stage. Tests rely on this to start synchronously.
func WithClassifier(c classifier.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(), // Inference is CPU-bound
		queueSize:    1024,
		cacheCap:     4096,
		cacheTTL:     time.Hour,
		modelTimeout: 5 * time.Second,
		maxTextBytes: 5000,
		modelPath:    "",
		logger:       nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components and kicks off model loading.
// It returns as soon as the pipeline is wired; weight loading continues
// in the background and Analyze blocks until it completes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting classification service...")

	// Initialize components
	s.store = repository.NewLRUStore(
		repository.WithCapacity(s.cacheCap),
		repository.WithTTL(s.cacheTTL),
	)
	s.taskQueue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
	)
	s.cache = resultcache.NewInMemoryCache(s.store,
		resultcache.WithModelTimeout(s.modelTimeout),
	)

	// Background work outlives the Start call; it stops in Stop, not when
	// the caller's context does.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.bgCancel = cancel
	s.background, runCtx = errgroup.WithContext(runCtx)

	// Create and start the worker pool with the lazy classifier adapter.
	s.workerPool = workerpool.NewPool(s.workerCount, s.taskQueue, &classifierAdapter{svc: s})
	s.workerPool.Start(runCtx)

	s.ready = make(chan struct{})
	s.loadErr = nil
	if s.classifier != nil {
		// A model was injected through WithClassifier; nothing to load.
		close(s.ready)
		metrics.UpdateModelLoaded(true)
	} else {
		s.background.Go(func() error {
			s.loadModel(runCtx)
			return nil
		})
	}
	s.background.Go(func() error {
		s.watchMetrics(runCtx)
		return nil
	})

	s.started = true
	s.logger.Info(ctx, "classification service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheCapacity", s.cacheCap),
	)

	return nil
}

// Stop gracefully shuts down the service. In-flight classifications are
// drained before the background loops are torn down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.workerPool
	group := s.background
	cancel := s.bgCancel
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping classification service...")

	// Shutdown closes the queue, so new submissions fail while the workers
	// finish whatever is already buffered.
	if pool != nil {
		if err := pool.Shutdown(context.Background()); err != nil {
			s.logger.Warn(context.Background(), "worker pool shutdown", logger.Error(err))
		}
	}

	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}

	s.logger.Info(context.Background(), "classification service stopped")
}

// Analyze classifies the sentiment of a text. Identical texts are served
// from the result cache; concurrent identical requests share one
// inference. Calls that arrive before the model finishes loading block
// until it is ready or the caller's context expires.
func (s *Service) Analyze(ctx context.Context, text string) (model.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Result{}, fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	if len(text) > s.maxTextBytes {
		return model.Result{}, fmt.Errorf("%w: text exceeds %d bytes", ErrValidation, s.maxTextBytes)
	}

	s.mu.RLock()
	started, ready, cache := s.started, s.ready, s.cache
	s.mu.RUnlock()

	if !started {
		return model.Result{}, ErrNotReady
	}

	// Weights arrive in the background after Start; early requests wait
	// here instead of failing.
	select {
	case <-ready:
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	}
	if err := s.loadError(); err != nil {
		return model.Result{}, fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	res, err := cache.GetOrCompute(ctx, text, s.classify)
	if err != nil {
		switch {
		case errors.Is(err, resultcache.ErrTimeout),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return model.Result{}, err
		default:
			return model.Result{}, fmt.Errorf("%w: %w", ErrInference, err)
		}
	}

	metrics.RecordTextClassified()
	return res, nil
}

// classify pushes a text through the queue and waits for a worker to
// deliver the outcome. The cache calls this once per distinct in-flight
// text, bounded by the model timeout.
func (s *Service) classify(ctx context.Context, text string) (model.Result, error) {
	task := taskqueue.NewTask(ctx, text)
	if err := s.taskQueue.Submit(ctx, task); err != nil {
		return model.Result{}, err
	}
	return task.Wait(ctx)
}

// Ready reports whether the service can classify: started, weights loaded.
func (s *Service) Ready(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.ready == nil {
		return false
	}
	select {
	case <-s.ready:
		return s.loadErr == nil
	default:
		return false
	}
}

// ModelInfo reports metadata about the model backing the service.
func (s *Service) ModelInfo(ctx context.Context) model.Info {
	s.mu.RLock()
	c := s.classifier
	s.mu.RUnlock()

	if c == nil {
		// Not loaded yet; the task and label set are fixed either way.
		return model.Info{
			Task:   "sentiment-analysis",
			Labels: []model.Label{model.LabelNegative, model.LabelPositive},
		}
	}
	return c.Info(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	loaded := false
	if s.ready != nil {
		select {
		case <-s.ready:
			loaded = s.loadErr == nil
		default:
		}
	}

	stats := map[string]interface{}{
		"started":      s.started,
		"modelLoaded":  loaded,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"maxTextBytes": s.maxTextBytes,
	}

	if s.started {
		queueLen := s.taskQueue.Len(ctx)
		cacheStats := s.store.Stats(ctx)

		stats["queueLength"] = queueLen
		stats["cacheEntries"] = cacheStats.Entries
		stats["cacheCapacity"] = cacheStats.Capacity
		stats["cacheEvictions"] = cacheStats.Evictions
		stats["cacheExpirations"] = cacheStats.Expirations

		// Update metrics
		metrics.UpdateCacheEntries(cacheStats.Entries)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}

// loadModel loads classifier weights in the background. Analyze blocks
// until this finishes one way or the other.
func (s *Service) loadModel(ctx context.Context) {
	start := time.Now()
	c, err := classifier.New(ctx, classifier.WithWeightsPath(s.modelPath))

	s.mu.Lock()
	if err != nil {
		s.loadErr = err
	} else {
		s.classifier = c
	}
	ready := s.ready
	s.mu.Unlock()
	close(ready)

	if err != nil {
		metrics.UpdateModelLoaded(false)
		metrics.RecordErrorByComponent("model", "load_failed")
		s.logger.Error(ctx, "model load failed", logger.Error(err))
		return
	}

	metrics.UpdateModelLoaded(true)
	s.logger.Info(ctx, "model loaded",
		logger.String("model", c.Info(ctx).Name),
		logger.Duration("took", time.Since(start)),
	)
}

// watchMetrics periodically publishes gauges that have no natural
// recording point: cache occupancy, queue depth, process health.
func (s *Service) watchMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishGauges(ctx)
		}
	}
}

func (s *Service) publishGauges(ctx context.Context) {
	s.mu.RLock()
	store := s.store
	q := s.taskQueue
	s.mu.RUnlock()

	if store != nil {
		st := store.Stats(ctx)
		metrics.UpdateCacheEntries(st.Entries)
		metrics.UpdateCacheCapacity(st.Capacity)
	}
	if q != nil {
		_ = q.Len(ctx) // Len republishes queue depth and utilization.
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

func (s *Service) loadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}
