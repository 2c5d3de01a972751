// Package daemon runs the long-lived process: stage worker pools, the
// orchestration loop, and the HTTP API, with single-instance enforcement
// through a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelvault/internal/api"
	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/dispatch"
	"reelvault/internal/logging"
	"reelvault/internal/orchestrator"
	"reelvault/internal/stage"
	"reelvault/internal/tags"
	"reelvault/internal/worker"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *archive.Store
	queue  dispatch.Queue
	orch   *orchestrator.Orchestrator
	tagger *tags.Service
	pools  []*worker.Pool
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon from its collaborators. The registry decides
// which stages run in this process.
func New(cfg *config.Config, store *archive.Store, queue dispatch.Queue, registry *stage.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || queue == nil || registry == nil {
		return nil, errors.New("daemon requires config, store, queue, and registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.ArchiveDir, "reelvault.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    store,
		queue:    queue,
		tagger:   tags.NewService(store, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	heartbeatInterval := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	retryBackoff := time.Duration(cfg.Workers.RetryBackoffSeconds) * time.Second
	for _, st := range registry.Stages() {
		handler, err := registry.Handler(st)
		if err != nil {
			return nil, err
		}
		d.pools = append(d.pools, worker.New(st, handler, store, queue, worker.Options{
			Concurrency:       concurrencyFor(cfg, st),
			HeartbeatInterval: heartbeatInterval,
			RetryAttempts:     cfg.Workers.RetryAttempts,
			RetryBackoff:      retryBackoff,
		}, logger))
	}

	d.orch = orchestrator.New(store, queue, orchestrator.Options{
		Stages:           registry.Stages(),
		HeartbeatTimeout: time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
		SweepInterval:    time.Duration(cfg.Workflow.SweepInterval) * time.Second,
	}, logger)

	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

func concurrencyFor(cfg *config.Config, st archive.Stage) int {
	switch st {
	case archive.StageDownload:
		return cfg.Workers.DownloadConcurrency
	case archive.StageTranscription:
		return cfg.Workers.TranscriptionConcurrency
	case archive.StageOCR:
		return cfg.Workers.OCRConcurrency
	case archive.StageAutotag:
		return cfg.Workers.AutotagConcurrency
	default:
		return 1
	}
}

// Start acquires the lock and launches the pools, the orchestration loop,
// and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelvault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// A fresh start sweeps immediately so claims abandoned by a crash are
	// freed without waiting for the first tick.
	if _, err := d.orch.SweepStale(runCtx); err != nil {
		d.logger.Warn("startup sweep failed", logging.Error(err))
	}

	for _, pool := range d.pools {
		pool := pool
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			_ = pool.Run(runCtx)
		}()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.orch.Run(runCtx)
	}()

	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.wg.Wait()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pools", len(d.pools)))
	return nil
}

// Stop halts background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.queue.Close(); err != nil {
		d.logger.Warn("close dispatch queue", logging.Error(err))
	}
	return d.store.Close()
}

// Status reports runtime information including per-stage health.
func (d *Daemon) Status(ctx context.Context) api.StatusView {
	view := api.StatusView{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		ArchivePath: d.store.Path(),
	}
	for _, pool := range d.pools {
		health := pool.Health(ctx)
		view.Stages = append(view.Stages, api.StageHealthView{
			Stage:  string(pool.Stage()),
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return view
}

// Orchestrator exposes the orchestration surface for in-process callers.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}
