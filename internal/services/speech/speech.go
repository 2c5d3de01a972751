// Package speech transcribes downloaded video audio through the
// speech-to-text service.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelvault/internal/config"
	"reelvault/internal/services"
)

// Client produces a transcript for a media file.
type Client interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
	Ping(ctx context.Context) error
}

// HTTPClient uploads the media file to the transcriber and returns its text.
type HTTPClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewHTTPClient(cfg config.Transcriber) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the file as multipart form data.
func (c *HTTPClient) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	file, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open media for transcription: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(mediaPath))
	if err != nil {
		return "", fmt.Errorf("build transcribe payload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read media for transcription: %w", err)
	}
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return "", fmt.Errorf("build transcribe payload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build transcribe payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcription", "transcribe", "call transcriber", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.StatusMarker(resp.StatusCode), "transcription", "transcribe",
			fmt.Sprintf("transcriber returned %d", resp.StatusCode), nil)
	}

	var decoded transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrExternalService, "transcription", "transcribe", "decode transcriber response", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}

// Ping verifies the transcriber is reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return services.PingHTTP(ctx, c.client, c.baseURL, "transcription")
}
