package config

const (
	defaultArchiveDir = "~/.local/share/reelvault"
	defaultMediaDir   = "~/.local/share/reelvault/media"
	defaultLogDir     = "~/.local/share/reelvault/logs"
	defaultAPIBind    = "127.0.0.1:7642"

	defaultSourceRequestTimeout = 30
	defaultSourceUserAgent      = "reelvault/dev"

	defaultRedisAddr = "127.0.0.1:6379"

	// Download concurrency stays low to avoid rate limiting by the source
	// platform; transcription and OCR are bounded by local compute.
	defaultDownloadConcurrency      = 2
	defaultTranscriptionConcurrency = 4
	defaultOCRConcurrency           = 4
	defaultAutotagConcurrency       = 2
	defaultRetryAttempts            = 3
	defaultRetryBackoffSeconds      = 2

	defaultSweepInterval     = 300
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120

	defaultTranscriberModel   = "base"
	defaultTranscriberTimeout = 600
	defaultOCRTimeout         = 120
	defaultAutotagTimeout     = 120
	defaultAutotagThreshold   = 0.8

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArchiveDir: defaultArchiveDir,
			MediaDir:   defaultMediaDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Source: Source{
			UserAgent:      defaultSourceUserAgent,
			RequestTimeout: defaultSourceRequestTimeout,
		},
		Redis: Redis{
			Enabled: false,
			Addr:    defaultRedisAddr,
		},
		Workers: Workers{
			DownloadConcurrency:      defaultDownloadConcurrency,
			TranscriptionConcurrency: defaultTranscriptionConcurrency,
			OCRConcurrency:           defaultOCRConcurrency,
			AutotagConcurrency:       defaultAutotagConcurrency,
			RetryAttempts:            defaultRetryAttempts,
			RetryBackoffSeconds:      defaultRetryBackoffSeconds,
		},
		Workflow: Workflow{
			SweepInterval:     defaultSweepInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Transcriber: Transcriber{
			Model:          defaultTranscriberModel,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		OCR: OCR{
			TimeoutSeconds: defaultOCRTimeout,
		},
		Autotag: Autotag{
			Enabled:             false,
			ConfidenceThreshold: defaultAutotagThreshold,
			TimeoutSeconds:      defaultAutotagTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
