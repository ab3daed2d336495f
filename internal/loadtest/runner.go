package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sentiolabs/sentio/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// readyPollInterval seeds the backoff while waiting for the model to load.
const readyPollInterval = 500 * time.Millisecond

// Run executes the complete load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting sentio load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("texts", config.NumTexts),
		logger.Int("repeats", config.Repeats),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Wait for the service to pass its readiness probe
	if err := waitForReady(ctx, config, client); err != nil {
		return fmt.Errorf("service readiness check failed: %w", err)
	}

	// Step 2: Generate texts
	samples, err := generateSamples(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("text generation failed: %w", err)
	}

	// Step 3: Cold pass, every text unseen by the service
	cold, err := submitSamples(ctx, config, client, "cold", samples)
	if err != nil {
		return fmt.Errorf("cold pass failed: %w", err)
	}
	stats.ColdSubmitted = int(cold.submitted)
	stats.ColdFailed = int(cold.failed)

	// Step 4: Warm passes, every text already cached
	repeated := make([]Sample, 0, len(samples)*config.Repeats)
	for i := 0; i < config.Repeats; i++ {
		repeated = append(repeated, samples...)
	}
	warm := &phaseResult{}
	if len(repeated) > 0 {
		warm, err = submitSamples(ctx, config, client, "warm", repeated)
		if err != nil {
			return fmt.Errorf("warm pass failed: %w", err)
		}
	}
	stats.WarmSubmitted = int(warm.submitted)
	stats.WarmFailed = int(warm.failed)

	// Step 5: Verify labels and cache latency
	if err := verifyResults(config, cold, warm, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Read back service statistics
	if err := fetchServiceStats(ctx, config, client, stats); err != nil {
		logger.Get().Warn(ctx, "failed to fetch service stats", logger.Error(err))
	}

	// Step 7: Save generated texts to file
	if err := saveSamplesToFile(ctx, config, samples); err != nil {
		logger.Get().Warn(ctx, "failed to save texts to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// waitForReady polls the readiness probe until the model has loaded.
// A freshly started service answers 503 while weights are loading, so
// 503 is retried; anything else but 200 fails fast.
func waitForReady(ctx context.Context, config *Config, client *HTTPClient) error {
	logger.Get().Info(ctx, "waiting for service readiness")

	url := config.BaseURL + "/healthz"

	waitCtx, cancel := context.WithTimeout(ctx, ReadyWaitBudget)
	defer cancel()

	b := retry.NewFibonacci(readyPollInterval)
	err := retry.Do(waitCtx, b, func(ctx context.Context) error {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to connect to service: %w", err))
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
			}
		}()

		switch resp.StatusCode {
		case StatusOK:
			return nil
		case 503:
			return retry.RetryableError(fmt.Errorf("model still loading"))
		default:
			return fmt.Errorf("unexpected health status: %d", resp.StatusCode)
		}
	})
	if err != nil {
		return err
	}

	logger.Get().Info(ctx, "service is ready")
	return nil
}

// fetchServiceStats reads /stats and records the cache fill level.
func fetchServiceStats(ctx context.Context, config *Config, client *HTTPClient, stats *Stats) error {
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var svcStats map[string]interface{}
	if err := json.Unmarshal(body, &svcStats); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if entries, ok := svcStats["cacheEntries"].(float64); ok {
		stats.CacheEntries = int(entries)
	}

	logger.Get().Info(ctx, "service stats",
		logger.Any("cacheEntries", svcStats["cacheEntries"]),
		logger.Any("queueLength", svcStats["queueLength"]),
		logger.Any("workerCount", svcStats["workerCount"]))
	return nil
}

// saveSamplesToFile saves the generated texts to a JSON file.
func saveSamplesToFile(ctx context.Context, config *Config, samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no texts to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "loadtest_texts_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write texts to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(samples); err != nil {
		return fmt.Errorf("failed to write texts: %w", err)
	}

	logger.Get().Info(ctx, "texts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var failureRate, textsPerSecond float64

	submitted := stats.ColdSubmitted + stats.WarmSubmitted
	failed := stats.ColdFailed + stats.WarmFailed

	if submitted > 0 {
		failureRate = float64(failed) / float64(submitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		textsPerSecond = float64(submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("textsGenerated", stats.TextsGenerated),
		logger.Int("coldSubmitted", stats.ColdSubmitted),
		logger.Int("coldFailed", stats.ColdFailed),
		logger.Int("warmSubmitted", stats.WarmSubmitted),
		logger.Int("warmFailed", stats.WarmFailed),
		logger.Int("labelMismatches", stats.LabelMismatches),
		logger.Int("cacheEntries", stats.CacheEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("failureRate", failureRate),
		logger.Float64("textsPerSecond", textsPerSecond))
}
