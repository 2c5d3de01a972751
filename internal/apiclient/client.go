// Package apiclient is the CLI-side client for the daemon HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"reelvault/internal/api"
	"reelvault/internal/ingest"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the daemon listening at bind (host:port).
func New(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ErrDaemonUnreachable reports that no daemon answered at the configured
// address.
var ErrDaemonUnreachable = errors.New("daemon unreachable")

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w at %s; start it with `reelvault serve`", ErrDaemonUnreachable, c.baseURL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		message := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			message = payload.Error
		}
		return fmt.Errorf("daemon request %s %s: %s", method, path, message)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Status reports daemon runtime state and per-stage health.
func (c *Client) Status(ctx context.Context) (api.StatusView, error) {
	var view api.StatusView
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &view)
	return view, err
}

// Stats fetches archive counters.
func (c *Client) Stats(ctx context.Context) (api.StatsView, error) {
	var view api.StatsView
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &view)
	return view, err
}

// Enqueue asks the daemon to dispatch eligible items for one stage.
func (c *Client) Enqueue(ctx context.Context, stage string) (int, error) {
	var resp struct {
		Queued int `json:"queued"`
	}
	err := c.postJSON(ctx, "/api/admin/enqueue/"+stage, nil, &resp)
	return resp.Queued, err
}

// Sweep asks the daemon to reclaim stale claims.
func (c *Client) Sweep(ctx context.Context) (int64, error) {
	var resp struct {
		Reclaimed int64 `json:"reclaimed"`
	}
	err := c.postJSON(ctx, "/api/admin/sweep", nil, &resp)
	return resp.Reclaimed, err
}

// Retry resets failed items for a stage. With no ids, every failed item
// for the stage is reset.
func (c *Client) Retry(ctx context.Context, stage string, ids []string) (int64, error) {
	var resp struct {
		Retried int64 `json:"retried"`
	}
	var payload any
	if len(ids) > 0 {
		payload = map[string][]string{"ids": ids}
	}
	err := c.postJSON(ctx, "/api/admin/retry/"+stage, payload, &resp)
	return resp.Retried, err
}

// IngestLinks submits share links for ingestion.
func (c *Client) IngestLinks(ctx context.Context, links []string) ([]ingest.Outcome, error) {
	var resp struct {
		Outcomes []ingest.Outcome `json:"outcomes"`
	}
	err := c.postJSON(ctx, "/api/admin/links", map[string][]string{"links": links}, &resp)
	return resp.Outcomes, err
}

// IngestExport submits a platform export document for ingestion.
func (c *Client) IngestExport(ctx context.Context, export io.Reader) ([]ingest.Outcome, error) {
	var resp struct {
		Outcomes []ingest.Outcome `json:"outcomes"`
	}
	err := c.do(ctx, http.MethodPost, "/api/admin/ingest", export, &resp)
	return resp.Outcomes, err
}
