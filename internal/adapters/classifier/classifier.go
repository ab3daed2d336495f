// Package classifier implements sentiment inference over hashed
// bag-of-words features.
package classifier

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/sentiolabs/sentio/internal/domain/model"
)

// Task reported by Info for every model this package loads.
const task = "sentiment-analysis"

// punctuation stripped from token edges before hashing.
const punctuation = ".,!?;:\"'()-"

// Classifier turns a text into a sentiment classification.
type Classifier interface {
	// Classify scores text, honoring ctx for cancellation.
	Classify(ctx context.Context, text string) (model.Result, error)
	// Info describes the loaded model.
	Info(ctx context.Context) model.Info
}

// LinearClassifier scores hashed bag-of-words features against a fixed
// weight vector. All fields are read-only after New, so a single
// instance serves concurrent callers without locking.
type LinearClassifier struct {
	path string
	w    *Weights
}

// New builds a classifier from a weight file, or from the built-in
// weights when no path is configured.
func New(ctx context.Context, opts ...Option) (*LinearClassifier, error) {
	c := &LinearClassifier{}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	if c.w == nil {
		w, err := LoadWeights(ctx, c.path)
		if err != nil {
			return nil, err
		}
		c.w = &w
	} else if err := c.w.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Classify computes the sentiment of text. The decision function is a
// dot product between the L2-normalized feature vector and the weight
// vector, squashed through a sigmoid; the reported score is the
// winning class probability rounded to four decimals.
func (c *LinearClassifier) Classify(ctx context.Context, text string) (model.Result, error) {
	select {
	case <-ctx.Done():
		return model.Result{}, fmt.Errorf("classify: %w", ctx.Err())
	default:
	}

	vec := c.featurize(text)

	z := c.w.Bias
	for i, v := range vec {
		if v != 0 {
			z += c.w.Weights[i] * v
		}
	}
	p := sigmoid(z)

	label := model.LabelPositive
	confidence := p
	if p < 0.5 {
		label = model.LabelNegative
		confidence = 1 - p
	}

	return model.Result{Label: label, Score: round4(confidence)}, nil
}

// Info implements Classifier.Info.
func (c *LinearClassifier) Info(ctx context.Context) model.Info {
	return model.Info{
		Name:   c.w.Name,
		Task:   task,
		Labels: []model.Label{model.LabelNegative, model.LabelPositive},
		Loaded: true,
	}
}

// featurize hashes the text's words into a fixed-dimension
// bag-of-words vector and L2-normalizes it so long texts stay
// comparable to short ones.
func (c *LinearClassifier) featurize(text string) []float64 {
	vec := make([]float64, c.w.Dim)

	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, punctuation)
		if w == "" || isStopWord(w) {
			continue
		}

		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		idx := int(h.Sum32()) % c.w.Dim
		// Ensure positive index
		if idx < 0 {
			idx = -idx
		}
		vec[idx]++
	}

	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq > 0 {
		norm := 1.0 / math.Sqrt(sumSq)
		for i, v := range vec {
			vec[i] = v * norm
		}
	}
	return vec
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func round4(x float64) float64 {
	return math.Round(x*10_000) / 10_000
}

// stopWords are function words carrying no sentiment. Negations and
// intensity words ("not", "never", "very") are deliberately absent:
// they shift polarity and must reach the weight vector.
var stopWords = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "our": true, "ours": true, "ourselves": true,
	"you": true, "your": true, "yours": true, "yourself": true, "yourselves": true, "he": true, "him": true,
	"his": true, "himself": true, "she": true, "her": true, "hers": true, "herself": true, "it": true, "its": true,
	"itself": true, "they": true, "them": true, "their": true, "theirs": true, "themselves": true, "what": true,
	"which": true, "who": true, "whom": true, "this": true, "that": true, "these": true, "those": true, "am": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "having": true, "do": true, "does": true, "did": true, "doing": true, "a": true,
	"an": true, "the": true, "and": true, "but": true, "if": true, "or": true, "because": true, "as": true,
	"until": true, "while": true, "of": true, "at": true, "by": true, "for": true, "with": true, "about": true,
	"between": true, "into": true, "through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "to": true, "from": true, "up": true, "down": true, "in": true, "out": true,
	"on": true, "off": true, "over": true, "under": true, "again": true, "further": true, "then": true, "once": true,
	"here": true, "there": true, "when": true, "where": true, "how": true, "all": true, "any": true,
	"both": true, "each": true, "few": true, "other": true, "some": true, "such": true,
	"own": true, "same": true, "so": true, "than": true, "s": true, "t": true, "will": true, "just": true,
	"should": true, "now": true,
}

func isStopWord(w string) bool {
	return stopWords[w]
}
