// Package model contains domain types passed between layers.
package model

// Label is the sentiment class assigned to a text.
type Label string

// Labels produced by the classifier. The pretrained head is binary.
const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
)

// Result is a single classification outcome. Immutable once produced;
// the cache hands the same value to every caller of the same key.
type Result struct {
	Label Label   `json:"label"` // sentiment class
	Score float64 `json:"score"` // confidence in [0,1], rounded to 4 decimals
}

// Info describes the loaded model for the /models endpoint.
type Info struct {
	Name   string  `json:"model_name"`
	Task   string  `json:"task"`
	Labels []Label `json:"labels"`
	Loaded bool    `json:"loaded"`
}
