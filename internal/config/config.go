package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ArchiveDir string `toml:"archive_dir"`
	MediaDir   string `toml:"media_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Source contains configuration for the platform scraping/download client.
type Source struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Redis contains configuration for the ephemeral dispatch queues.
type Redis struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Workers contains per-stage concurrency and retry configuration.
type Workers struct {
	DownloadConcurrency      int `toml:"download_concurrency"`
	TranscriptionConcurrency int `toml:"transcription_concurrency"`
	OCRConcurrency           int `toml:"ocr_concurrency"`
	AutotagConcurrency       int `toml:"autotag_concurrency"`
	RetryAttempts            int `toml:"retry_attempts"`
	RetryBackoffSeconds      int `toml:"retry_backoff_seconds"`
}

// Workflow contains timing configuration for sweeps and heartbeats.
type Workflow struct {
	SweepInterval     int `toml:"sweep_interval"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// Transcriber contains configuration for the speech-to-text service.
type Transcriber struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OCR contains configuration for the image text extraction service.
type OCR struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Autotag contains configuration for zero-shot automatic tagging.
type Autotag struct {
	Enabled             bool     `toml:"enabled"`
	URL                 string   `toml:"url"`
	Labels              []string `toml:"labels"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration for reelvault.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Source      Source      `toml:"source"`
	Redis       Redis       `toml:"redis"`
	Workers     Workers     `toml:"workers"`
	Workflow    Workflow    `toml:"workflow"`
	Transcriber Transcriber `toml:"transcriber"`
	OCR         OCR         `toml:"ocr"`
	Autotag     Autotag     `toml:"autotag"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the user-level configuration file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "reelvault", "config.toml"), nil
}

// Load reads configuration from path, or from the default location when path
// is empty. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		resolved = defaultPath
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && strings.TrimSpace(path) == "":
		// No user config yet; defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("REELVAULT_SOURCE_TOKEN")); v != "" {
		c.Source.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("REELVAULT_API_TOKEN")); v != "" {
		c.Paths.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("REELVAULT_REDIS_PASSWORD")); v != "" {
		c.Redis.Password = v
	}
}

// EnsureDirectories creates the directories the archive needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ArchiveDir, c.Paths.MediaDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
