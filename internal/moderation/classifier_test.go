package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/streamchat/internal/domain"
)

func newClassifier(t *testing.T, handler http.HandlerFunc) *CohereClassifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCohereClassifier(Config{APIKey: "co-key", BaseURL: srv.URL})
}

func TestClassifyToxicUnlabelled(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/classify"), r.URL.Path)
		assert.Equal(t, "Bearer co-key", r.Header.Get("Authorization"))

		var req struct {
			Model  string   `json:"model"`
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cohere-toxicity", req.Model)
		assert.Equal(t, []string{"you are the worst"}, req.Inputs)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","classifications":[{"id":"i1","prediction":"TOXIC","predictions":["TOXIC"],
			"confidences":[0.1,0.92],"labels":{},"classification_type":"single-label"}]}`))
	})

	res, err := c.Classify(context.Background(), "you are the worst")
	require.NoError(t, err)

	label, conf := res.Top()
	assert.Equal(t, domain.LabelToxic, label)
	assert.True(t, res.Toxic())
	assert.Equal(t, "92%", domain.FormatCertainty(conf))
}

func TestClassifyLabelledConfidences(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c2","classifications":[{"id":"i2","input":"hi","prediction":"BENIGN","predictions":["BENIGN"],
			"confidence":0.8,"confidences":[0.8],
			"labels":{"TOXIC":{"confidence":0.2},"BENIGN":{"confidence":0.8}},
			"classification_type":"single-label"}]}`))
	})

	res, err := c.Classify(context.Background(), "hi")
	require.NoError(t, err)

	_, conf := res.Top()
	assert.InDelta(t, 0.8, conf, 1e-9)
	assert.False(t, res.Toxic())
	assert.Equal(t, "hi", res.Input)
	require.Len(t, res.Confidences, 2)
	assert.Equal(t, "BENIGN", res.Confidences[0].Label)
	assert.Equal(t, "TOXIC", res.Confidences[1].Label)
}

func TestClassifyErrorStatusIsUnavailableAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	})

	_, err := c.Classify(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrClassificationUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassifyEmptyIsUnavailable(t *testing.T) {
	c := newClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c3","classifications":[]}`))
	})

	_, err := c.Classify(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrClassificationUnavailable)
}

func TestClassifyTransportFailure(t *testing.T) {
	c := NewCohereClassifier(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Classify(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrClassificationUnavailable)
}
