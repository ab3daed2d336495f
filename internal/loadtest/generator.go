package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/sentiolabs/sentio/pkg/logger"
)

// refFragmentLen bounds the uuid fragment appended for uniqueness.
const refFragmentLen = 8

// positiveTemplates produce texts whose polar words imply a positive label.
var positiveTemplates = []string{
	"I absolutely love this %s, it works great",
	"The %s is excellent and exceeded every expectation",
	"Fantastic %s, I am very happy with it",
	"This %s is wonderful, best purchase I have made",
	"Great %s, fast and reliable, highly recommended",
	"The new %s is amazing and a joy to use",
	"Brilliant %s, everything works perfectly",
	"I really enjoy the %s, superb quality",
}

// negativeTemplates produce texts whose polar words imply a negative label.
var negativeTemplates = []string{
	"This %s is terrible and completely broken",
	"I hate the %s, it fails constantly",
	"Awful %s, worst experience I have had",
	"The %s is disappointing and full of bugs",
	"Horrible %s, slow and unreliable, avoid it",
	"The new %s is useless and a waste of money",
	"Bad %s, nothing works as advertised",
	"I regret buying the %s, poor quality",
}

// subjects fill the template slot so texts vary beyond polarity.
var subjects = []string{
	"product", "service", "app", "update",
	"device", "interface", "support team", "release",
}

// pick returns a uniformly random element using crypto/rand.
func pick(list []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	return list[n.Int64()]
}

// coin returns a uniformly random boolean using crypto/rand.
func coin() bool {
	n, _ := rand.Int(rand.Reader, big.NewInt(2))
	return n.Int64() == 0
}

// generateSamples creates the configured number of distinct texts, each
// tagged with the label its template implies. A uuid fragment keeps
// every text unique so the cold pass never hits the cache.
func generateSamples(ctx context.Context, config *Config, stats *Stats) ([]Sample, error) {
	logger.Get().Info(ctx, "generating texts", logger.Int("numTexts", config.NumTexts))

	samples := make([]Sample, config.NumTexts)
	for i := range samples {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during text generation: %w", ctx.Err())
		default:
		}
		samples[i] = generateSingleSample(i)
	}

	stats.TextsGenerated = len(samples)
	logger.Get().Info(ctx, "generated texts successfully", logger.Int("count", len(samples)))

	return samples, nil
}

// generateSingleSample creates one sample with the given index.
func generateSingleSample(index int) Sample {
	want := "positive"
	template := pick(positiveTemplates)
	if coin() {
		want = "negative"
		template = pick(negativeTemplates)
	}

	base := fmt.Sprintf(template, pick(subjects))
	text := fmt.Sprintf("%s, ref %d-%s", base, index, uuid.NewString()[:refFragmentLen])

	return Sample{Text: text, WantLabel: want}
}
