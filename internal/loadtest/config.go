package loadtest

import "time"

// Config holds configuration for the load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumTexts   int           // Number of distinct texts to generate
	Repeats    int           // How many times each text is re-submitted after the cold pass
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated texts
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Sample is a generated text with the label its template implies
type Sample struct {
	Text      string `json:"text"`
	WantLabel string `json:"want_label"`
}

// Result represents the response from text classification
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ErrorResponse represents the error envelope of the service
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds test statistics
type Stats struct {
	TextsGenerated  int
	ColdSubmitted   int
	ColdFailed      int
	WarmSubmitted   int
	WarmFailed      int
	LabelMismatches int
	CacheEntries    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
