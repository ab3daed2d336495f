package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// phaseResult aggregates one submission pass over the samples.
type phaseResult struct {
	submitted  int64
	failed     int64
	mismatched int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (p *phaseResult) record(d time.Duration) {
	p.mu.Lock()
	p.latencies = append(p.latencies, d)
	p.mu.Unlock()
}

// submitSamples pushes every sample through /analyze using a worker pool
// and collects latency and mismatch counts. The same function serves the
// cold pass (every text unseen) and the warm passes (every text cached).
func submitSamples(ctx context.Context, config *Config, client *HTTPClient, phase string, samples []Sample) (*phaseResult, error) {
	log.Printf("📤 [%s] Submitting %d texts with %d workers...", phase, len(samples), config.Workers)

	url := config.BaseURL + "/analyze"
	result := &phaseResult{latencies: make([]time.Duration, 0, len(samples))}

	// Progress reporting
	var lastReport atomic.Int64
	reportInterval := time.Second

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				sample := samples[index]
				res, took, err := analyzeSingle(ctx, client, url, sample)

				atomic.AddInt64(&result.submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&result.failed, 1)
					if config.Verbose {
						log.Printf("⚠️  [%s] analyze failed: %v", phase, err)
					}
				case res.Label != sample.WantLabel:
					atomic.AddInt64(&result.mismatched, 1)
					result.record(took)
					if config.Verbose {
						log.Printf("⚠️  [%s] label mismatch: want %s, got %s (%.4f): %q",
							phase, sample.WantLabel, res.Label, res.Score, sample.Text)
					}
				default:
					result.record(took)
				}

				// Progress reporting
				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					total := atomic.LoadInt64(&result.submitted)
					fail := atomic.LoadInt64(&result.failed)
					miss := atomic.LoadInt64(&result.mismatched)

					if config.Verbose {
						log.Printf("📊 [%s] Progress: %d/%d submitted (failed: %d, mismatched: %d)",
							phase, total, len(samples), fail, miss)
					} else {
						fmt.Printf("\r📤 [%s] Submitted: %d/%d (failed: %d, mismatched: %d)",
							phase, total, len(samples), fail, miss)
					}
				}
			}
		}()
	}

	// Send sample indices to workers
	go func() {
		defer close(indexChan)
		for i := range samples {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	log.Printf(`✅ [%s] Submission completed:
   Submitted: %d
   Failed: %d
   Mismatched: %d
`, phase, atomic.LoadInt64(&result.submitted), atomic.LoadInt64(&result.failed), atomic.LoadInt64(&result.mismatched))

	return result, nil
}

// analyzeSingle submits one text and returns the classification and the
// request round-trip time.
func analyzeSingle(ctx context.Context, client *HTTPClient, url string, sample Sample) (Result, time.Duration, error) {
	start := time.Now()
	resp, err := client.Post(ctx, url, map[string]string{"text": sample.Text})
	took := time.Since(start)
	if err != nil {
		return Result{}, took, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Result{}, took, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
			return Result{}, took, fmt.Errorf("HTTP %d: %s: %s", resp.StatusCode, errResp.Code, errResp.Message)
		}
		return Result{}, took, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, took, fmt.Errorf("failed to parse response: %w", err)
	}

	return result, took, nil
}
