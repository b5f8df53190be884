package domain

import (
	"fmt"
	"math"
	"strings"
)

// Label of a toxicity classification.
const (
	LabelToxic    = "TOXIC"
	LabelNonToxic = "BENIGN"
)

// ToxicMarker is appended to the relayed body of a toxic chat.
const ToxicMarker = " [toxic]"

// ChatMessage is one moderated chat event. StreamID is used for routing
// only and is not checked against the registry.
type ChatMessage struct {
	StreamID  string
	Body      string
	Positive  bool
	Certainty string
}

// LabelConfidence is one label score of a prediction.
type LabelConfidence struct {
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Classification is the classifier result for one input.
type Classification struct {
	Input       string            `json:"input,omitempty"`
	Prediction  string            `json:"prediction"`
	Confidence  float64           `json:"confidence,omitempty"`
	Confidences []LabelConfidence `json:"confidences"`
}

// Toxic reports whether the prediction is the toxic label.
func (c *Classification) Toxic() bool {
	return strings.EqualFold(c.Prediction, LabelToxic)
}

// Top returns the predicted label and its confidence. The confidence is the
// entry whose label matches the prediction; when the entries carry no
// labels it falls back to index 1 for TOXIC and index 0 otherwise.
func (c *Classification) Top() (string, float64) {
	for _, lc := range c.Confidences {
		if lc.Label != "" && strings.EqualFold(lc.Label, c.Prediction) {
			return c.Prediction, lc.Confidence
		}
	}

	idx := 0
	if c.Toxic() {
		idx = 1
	}
	if idx < len(c.Confidences) {
		return c.Prediction, c.Confidences[idx].Confidence
	}
	return c.Prediction, c.Confidence
}

// FormatCertainty renders a confidence in [0,1] as a truncated percentage.
func FormatCertainty(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Trunc(confidence*100)))
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse is returned by POST /classify.
type ClassifyResponse struct {
	Classification []Classification `json:"classification"`
}
