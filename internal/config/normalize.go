package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return err
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	c.Transcriber.URL = strings.TrimRight(strings.TrimSpace(c.Transcriber.URL), "/")
	c.OCR.URL = strings.TrimRight(strings.TrimSpace(c.OCR.URL), "/")
	c.Autotag.URL = strings.TrimRight(strings.TrimSpace(c.Autotag.URL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	labels := make([]string, 0, len(c.Autotag.Labels))
	for _, label := range c.Autotag.Labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	c.Autotag.Labels = labels

	if c.Workers.DownloadConcurrency <= 0 {
		c.Workers.DownloadConcurrency = defaultDownloadConcurrency
	}
	if c.Workers.TranscriptionConcurrency <= 0 {
		c.Workers.TranscriptionConcurrency = defaultTranscriptionConcurrency
	}
	if c.Workers.OCRConcurrency <= 0 {
		c.Workers.OCRConcurrency = defaultOCRConcurrency
	}
	if c.Workers.AutotagConcurrency <= 0 {
		c.Workers.AutotagConcurrency = defaultAutotagConcurrency
	}
	if c.Workers.RetryAttempts < 0 {
		c.Workers.RetryAttempts = 0
	}
	if c.Workers.RetryBackoffSeconds <= 0 {
		c.Workers.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Workflow.SweepInterval <= 0 {
		c.Workflow.SweepInterval = defaultSweepInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}

	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Clean(trimmed), nil
}
