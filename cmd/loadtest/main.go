package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/sentiolabs/sentio/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumTexts    = 1000
	defaultRepeats     = 2
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8000", "Base URL of the service")
		numTexts   = flag.Int("texts", defaultNumTexts, "Number of distinct texts to generate and submit")
		repeats    = flag.Int("repeats", defaultRepeats, "Times each text is re-submitted after the cold pass")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated texts (default: loadtest_texts_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	// Setup logging
	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &loadtest.Config{
		BaseURL:    *baseURL,
		NumTexts:   *numTexts,
		Repeats:    *repeats,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
