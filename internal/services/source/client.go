package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/services"
)

// Post availability errors. They are terminal for the download stage; the
// item is flagged rather than retried.
var (
	ErrGone    = errors.New("source post removed")
	ErrPrivate = errors.New("source post private")
)

const maxPayloadBytes = 512 << 20

// HTTPClient talks to the resolver service: one metadata call that yields
// direct media URLs, then a download per payload.
type HTTPClient struct {
	baseURL   string
	token     string
	userAgent string
	client    *http.Client
}

func NewHTTPClient(cfg config.Source) *HTTPClient {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type resolveResponse struct {
	Title        string   `json:"title"`
	Uploader     string   `json:"uploader"`
	UploaderID   string   `json:"uploader_id"`
	Description  string   `json:"description"`
	ContentType  string   `json:"content_type"`
	Duration     float64  `json:"duration_seconds"`
	CreatedAt    string   `json:"created_at"`
	VideoURL     string   `json:"video_url"`
	ImageURLs    []string `json:"image_urls"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

// Fetch resolves the post and downloads every media payload.
func (c *HTTPClient) Fetch(ctx context.Context, sourceURL string) (*Media, error) {
	body, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return nil, fmt.Errorf("marshal resolve request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build resolve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "resolve", "call resolver", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, ErrGone
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrPrivate
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "download", "resolve",
			fmt.Sprintf("resolver returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrExternalService, "download", "resolve",
			fmt.Sprintf("resolver returned %d", resp.StatusCode), nil)
	}

	var meta resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "download", "resolve", "decode resolver response", err)
	}

	media := &Media{
		Title:           meta.Title,
		Uploader:        meta.Uploader,
		UploaderID:      meta.UploaderID,
		Description:     meta.Description,
		DurationSeconds: meta.Duration,
	}
	switch meta.ContentType {
	case "video":
		media.ContentType = archive.ContentVideo
	case "images":
		media.ContentType = archive.ContentImages
	default:
		return nil, services.Wrap(services.ErrExternalService, "download", "resolve",
			fmt.Sprintf("resolver reported unknown content type %q", meta.ContentType), nil)
	}
	if meta.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
			media.CreatedAt = ts
		}
	}

	if media.ContentType == archive.ContentVideo {
		if meta.VideoURL == "" {
			return nil, services.Wrap(services.ErrExternalService, "download", "resolve", "resolver omitted video url", nil)
		}
		if media.Video, err = c.download(ctx, meta.VideoURL); err != nil {
			return nil, err
		}
	} else {
		if len(meta.ImageURLs) == 0 {
			return nil, services.Wrap(services.ErrExternalService, "download", "resolve", "resolver omitted image urls", nil)
		}
		for _, imageURL := range meta.ImageURLs {
			payload, err := c.download(ctx, imageURL)
			if err != nil {
				return nil, err
			}
			media.Images = append(media.Images, payload)
		}
	}
	if meta.ThumbnailURL != "" {
		// Thumbnails are best effort.
		if payload, err := c.download(ctx, meta.ThumbnailURL); err == nil {
			media.Thumbnail = payload
		}
	}

	return media, nil
}

// Ping verifies the resolver is reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	c.decorate(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "download", "health", "call resolver", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrUnavailable, "download", "health",
			fmt.Sprintf("resolver returned %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *HTTPClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	c.decorate(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "fetch_media", "download media payload", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.StatusMarker(resp.StatusCode), "download", "fetch_media",
			fmt.Sprintf("media host returned %d", resp.StatusCode), nil)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "fetch_media", "read media payload", err)
	}
	return payload, nil
}

func (c *HTTPClient) decorate(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
