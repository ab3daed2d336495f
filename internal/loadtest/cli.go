package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sentiolabs/sentio/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadtest_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Sentio Load Test Tool
=====================

A concurrent tool for exercising the sentio classification service:
submits generated texts, re-submits them to measure cache behavior,
and verifies the labels against the polarity of their templates.

Usage:
  go run cmd/loadtest/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -texts int
        Number of distinct texts to generate and submit (default 1000)
  -repeats int
        Times each text is re-submitted after the cold pass (default 2)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated texts (default: loadtest_texts_TIMESTAMP.json)
  -log string
        Log file for test output (default: loadtest_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/loadtest/main.go

  # Test with custom parameters
  go run cmd/loadtest/main.go -texts 5000 -workers 16 -url http://localhost:8080

  # Measure cache behavior with heavy repetition
  go run cmd/loadtest/main.go -texts 200 -repeats 10

  # Test with custom log file
  go run cmd/loadtest/main.go -texts 5000 -log my_test.log
`)
}
