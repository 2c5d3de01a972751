// Package vision extracts on-screen text from images through the OCR
// service.
package vision

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

// Client extracts text from one image.
type Client interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
	Ping(ctx context.Context) error
}

// HTTPClient posts raw image bytes to the OCR service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(cfg config.OCR) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type ocrResponse struct {
	Text string `json:"text"`
}

func (c *HTTPClient) ExtractText(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ocr", "extract_text", "call ocr service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.StatusMarker(resp.StatusCode), "ocr", "extract_text",
			fmt.Sprintf("ocr service returned %d", resp.StatusCode), nil)
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrExternalService, "ocr", "extract_text", "decode ocr response", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return services.PingHTTP(ctx, c.client, c.baseURL, "ocr")
}
