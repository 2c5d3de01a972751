// Package orchestrator turns store state into dispatched work. It owns the
// two recovery loops the status-as-truth design depends on: eligibility
// scans that (re)queue pending work, and the stale-claim sweep that frees
// claims whose workers died.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/dispatch"
	"reelvault/internal/logging"
)

// Orchestrator coordinates stage enqueueing and claim recovery.
type Orchestrator struct {
	store            *archive.Store
	queue            dispatch.Queue
	stages           []archive.Stage
	heartbeatTimeout time.Duration
	sweepInterval    time.Duration
	logger           *slog.Logger
}

// Options configures orchestration timing. Stages lists the stages the
// periodic loop advances, in pipeline order.
type Options struct {
	Stages           []archive.Stage
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
}

func New(store *archive.Store, queue dispatch.Queue, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(opts.Stages) == 0 {
		opts.Stages = archive.Stages
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = 2 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	return &Orchestrator{
		store:            store,
		queue:            queue,
		stages:           opts.Stages,
		heartbeatTimeout: opts.HeartbeatTimeout,
		sweepInterval:    opts.SweepInterval,
		logger:           logger.With(logging.String(logging.FieldComponent, "orchestrator")),
	}
}

// EnqueueStage scans for eligible items and claims each through the
// pending→queued transition before publishing its hint. Safe to re-run at
// any time and to run concurrently with workers: an item already claimed
// loses the CAS and is skipped. Returns the number of newly queued items.
func (o *Orchestrator) EnqueueStage(ctx context.Context, stage archive.Stage) (int, error) {
	items, err := o.store.EligibleForStage(ctx, stage, 0)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, item := range items {
		claimed, err := o.store.TransitionStage(ctx, item.ID, stage, archive.StatusPending, archive.StatusQueued)
		if err != nil {
			return queued, err
		}
		if !claimed {
			continue
		}
		queued++
		if err := o.queue.Publish(ctx, dispatch.NewMessage(stage, item.ID)); err != nil {
			// The item stays queued; the sweep returns it to pending once
			// its claim goes stale.
			o.logger.WarnContext(ctx, "publish dispatch hint failed",
				logging.String(logging.FieldStage, string(stage)),
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err))
		}
	}

	if queued > 0 {
		o.logger.InfoContext(ctx, "stage enqueued",
			logging.String(logging.FieldStage, string(stage)),
			logging.Int("queued", queued))
	}
	return queued, nil
}

// EnqueueAll advances every configured stage once, in pipeline order.
func (o *Orchestrator) EnqueueAll(ctx context.Context) (int, error) {
	total := 0
	for _, stage := range o.stages {
		queued, err := o.EnqueueStage(ctx, stage)
		total += queued
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SweepStale returns queued and processing claims whose heartbeats expired
// back to pending.
func (o *Orchestrator) SweepStale(ctx context.Context) (int64, error) {
	reclaimed, err := o.store.ReclaimStale(ctx, time.Now().Add(-o.heartbeatTimeout))
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		o.logger.InfoContext(ctx, "stale claims reclaimed", logging.Int64("claims", reclaimed))
	}
	return reclaimed, nil
}

// RetryFailed moves failed items for a stage back to pending. With no ids,
// every failed item for the stage is retried.
func (o *Orchestrator) RetryFailed(ctx context.Context, stage archive.Stage, ids ...string) (int64, error) {
	retried, err := o.store.RetryFailed(ctx, stage, ids...)
	if err != nil {
		return 0, err
	}
	if retried > 0 {
		o.logger.InfoContext(ctx, "failed items retried",
			logging.String(logging.FieldStage, string(stage)),
			logging.Int64("items", retried))
	}
	return retried, nil
}

// Run drives the periodic loop: sweep stale claims, then advance every
// stage. Blocks until the context ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := o.SweepStale(ctx); err != nil && ctx.Err() == nil {
				o.logger.ErrorContext(ctx, "sweep stale claims", logging.Error(err))
			}
			if _, err := o.EnqueueAll(ctx); err != nil && ctx.Err() == nil {
				o.logger.ErrorContext(ctx, "advance stages", logging.Error(err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
