package loadtest

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// Latency percentiles reported after each pass.
const (
	p50 = 0.50
	p95 = 0.95
	p99 = 0.99
)

// minimumAccuracy below which the label check logs a warning.
const minimumAccuracy = 0.95

// verifyResults checks label accuracy and compares cold and warm latency.
func verifyResults(config *Config, cold, warm *phaseResult, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if cold.submitted == 0 {
		return fmt.Errorf("no submissions to verify")
	}

	// Label accuracy over both passes
	total := cold.submitted + warm.submitted
	mismatched := cold.mismatched + warm.mismatched
	accuracy := 1 - float64(mismatched)/float64(total)
	if accuracy < minimumAccuracy {
		log.Printf("⚠️  Label accuracy warning: %.1f%% (%d/%d mismatched)",
			accuracy*PercentageMultiplier, mismatched, total)
	} else {
		log.Printf("✅ Label accuracy: %.1f%% (%d/%d mismatched)",
			accuracy*PercentageMultiplier, mismatched, total)
	}

	// Latency profile per pass
	displayLatencies("cold", cold.latencies)
	displayLatencies("warm", warm.latencies)

	// Warm requests are served from the cache, so the typical warm
	// request must not be slower than the typical cold one.
	coldP50 := percentile(cold.latencies, p50)
	warmP50 := percentile(warm.latencies, p50)
	if len(warm.latencies) > 0 && warmP50 > coldP50 {
		log.Printf("⚠️  Cache latency warning: warm p50 %s exceeds cold p50 %s", warmP50, coldP50)
	} else if len(warm.latencies) > 0 {
		log.Printf("✅ Cache latency verified: warm p50 %s <= cold p50 %s", warmP50, coldP50)
	}

	stats.LabelMismatches = int(mismatched)

	log.Println("✅ Result verification completed")
	return nil
}

// displayLatencies prints the latency percentiles for one pass.
func displayLatencies(phase string, latencies []time.Duration) {
	if len(latencies) == 0 {
		log.Printf("📊 [%s] no successful requests to profile", phase)
		return
	}

	log.Printf("📊 [%s] latency: p50 %s, p95 %s, p99 %s, max %s",
		phase,
		percentile(latencies, p50),
		percentile(latencies, p95),
		percentile(latencies, p99),
		percentile(latencies, 1))
}

// percentile returns the p-quantile of the given durations.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(p*float64(len(sorted))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
