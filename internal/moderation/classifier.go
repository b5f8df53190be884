// Package moderation classifies chat text with a hosted toxicity model.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/weiawesome/streamchat/internal/domain"
	"github.com/weiawesome/streamchat/pkg/log"
)

// Classifier scores one chat text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*domain.Classification, error)
}

// Config for CohereClassifier.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// CohereClassifier calls the Cohere classify endpoint.
type CohereClassifier struct {
	client *cohereclient.Client
	model  string
}

// NewCohereClassifier creates a new classifier client. Requests are sent
// once; a failed call is never retried.
func NewCohereClassifier(cfg Config) *CohereClassifier {
	if cfg.Model == "" {
		cfg.Model = "cohere-toxicity"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := []option.RequestOption{
		option.WithToken(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxAttempts(1),
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &CohereClassifier{
		client: cohereclient.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Classify submits exactly one input. Any transport, status or decoding
// failure is reported as domain.ErrClassificationUnavailable.
func (c *CohereClassifier) Classify(ctx context.Context, text string) (*domain.Classification, error) {
	model := c.model
	resp, err := c.client.Classify(ctx, &cohere.ClassifyRequest{
		Inputs: []string{text},
		Model:  &model,
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("classify request failed")
		return nil, unavailable(err)
	}
	if resp == nil || len(resp.Classifications) == 0 || resp.Classifications[0] == nil {
		return nil, unavailable(errors.New("empty classification"))
	}

	item := resp.Classifications[0]
	if item.Prediction == nil || *item.Prediction == "" {
		return nil, unavailable(errors.New("classification without prediction"))
	}
	return toDomain(item), nil
}

// toDomain keeps per-label confidences sorted by label. Without labels the
// raw confidences are kept in order.
func toDomain(item *cohere.ClassifyResponseClassificationsItem) *domain.Classification {
	c := &domain.Classification{
		Prediction: *item.Prediction,
	}
	if item.Input != nil {
		c.Input = *item.Input
	}
	if item.Confidence != nil {
		c.Confidence = *item.Confidence
	}

	if len(item.Labels) > 0 {
		labels := make([]string, 0, len(item.Labels))
		for label := range item.Labels {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		c.Confidences = make([]domain.LabelConfidence, 0, len(labels))
		for _, label := range labels {
			var conf float64
			if v := item.Labels[label]; v != nil && v.Confidence != nil {
				conf = *v.Confidence
			}
			c.Confidences = append(c.Confidences, domain.LabelConfidence{Label: label, Confidence: conf})
		}
		return c
	}

	c.Confidences = make([]domain.LabelConfidence, 0, len(item.Confidences))
	for _, conf := range item.Confidences {
		c.Confidences = append(c.Confidences, domain.LabelConfidence{Confidence: conf})
	}
	return c
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrClassificationUnavailable, err)
}
