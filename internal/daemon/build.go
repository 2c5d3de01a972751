package daemon

import (
	"context"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/dispatch"
	"reelvault/internal/logging"
	"reelvault/internal/services/classify"
	"reelvault/internal/services/source"
	"reelvault/internal/services/speech"
	"reelvault/internal/services/vision"
	"reelvault/internal/stage"
	"reelvault/internal/stages/autotag"
	"reelvault/internal/stages/download"
	"reelvault/internal/stages/ocr"
	"reelvault/internal/stages/transcribe"
	"reelvault/internal/tags"

	"log/slog"
)

// Build assembles a daemon from configuration: archive store, dispatch
// queue, service clients, and one worker pool per enabled stage.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := archive.Open(cfg)
	if err != nil {
		return nil, err
	}

	queue, err := buildQueue(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := buildRegistry(cfg, store, logger)
	d, err := New(cfg, store, queue, registry, logger)
	if err != nil {
		_ = queue.Close()
		_ = store.Close()
		return nil, err
	}
	return d, nil
}

func buildQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dispatch.Queue, error) {
	if cfg.Redis.Enabled {
		return dispatch.NewRedisQueue(ctx, cfg.Redis)
	}
	logger.Info("redis disabled, using in-process dispatch")
	return dispatch.NewMemoryQueue(), nil
}

func buildRegistry(cfg *config.Config, store *archive.Store, logger *slog.Logger) *stage.Registry {
	registry := stage.NewRegistry()

	sourceClient := source.NewHTTPClient(cfg.Source)
	registry.Register(archive.StageDownload, download.New(store, sourceClient, cfg.Paths.MediaDir, logger))

	speechClient := speech.NewHTTPClient(cfg.Transcriber)
	registry.Register(archive.StageTranscription, transcribe.New(store, speechClient, cfg.Paths.MediaDir, logger))

	visionClient := vision.NewHTTPClient(cfg.OCR)
	registry.Register(archive.StageOCR, ocr.New(store, visionClient, cfg.Paths.MediaDir, logger))

	if cfg.Autotag.Enabled {
		classifyClient := classify.NewHTTPClient(cfg.Autotag)
		tagger := tags.NewService(store, logger)
		registry.Register(archive.StageAutotag, autotag.New(store, classifyClient, tagger, cfg.Autotag, logger))
	}

	return registry
}
