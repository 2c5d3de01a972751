// Package classify scores item text against a fixed label set through the
// zero-shot classification service.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reelvault/internal/config"
	"reelvault/internal/services"
)

// Prediction is one label with its classifier confidence.
type Prediction struct {
	Label string
	Score float64
}

// Client scores free text against candidate labels.
type Client interface {
	Classify(ctx context.Context, text string, labels []string) ([]Prediction, error)
	Ping(ctx context.Context) error
}

// HTTPClient posts text and candidate labels to the classifier.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(cfg config.Autotag) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// classifyResponse mirrors the zero-shot pipeline output: labels sorted by
// descending score, scores positionally aligned.
type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

func (c *HTTPClient) Classify(ctx context.Context, text string, labels []string) ([]Prediction, error) {
	payload, err := json.Marshal(classifyRequest{Text: text, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "autotag", "classify", "call classifier", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.StatusMarker(resp.StatusCode), "autotag", "classify",
			fmt.Sprintf("classifier returned %d", resp.StatusCode), nil)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "autotag", "classify", "decode classifier response", err)
	}
	if len(decoded.Labels) != len(decoded.Scores) {
		return nil, services.Wrap(services.ErrExternalService, "autotag", "classify",
			"classifier returned mismatched labels and scores", nil)
	}

	predictions := make([]Prediction, len(decoded.Labels))
	for i, label := range decoded.Labels {
		predictions[i] = Prediction{Label: label, Score: decoded.Scores[i]}
	}
	return predictions, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return services.PingHTTP(ctx, c.client, c.baseURL, "autotag")
}
