package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// PingHTTP performs the conventional GET /health probe shared by every
// external service client.
func PingHTTP(ctx context.Context, client *http.Client, baseURL, stage string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Wrap(ErrUnavailable, stage, "health", "call service", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Wrap(ErrUnavailable, stage, "health",
			fmt.Sprintf("service returned %d", resp.StatusCode), nil)
	}
	return nil
}

// StatusMarker classifies an unexpected HTTP status: throttling and server
// errors are retryable, everything else is a hard external-service error.
func StatusMarker(statusCode int) error {
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return ErrTransient
	}
	return ErrExternalService
}
