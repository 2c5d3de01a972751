// Package worker runs stage handlers against dispatched work hints. The
// pool trusts nothing in a hint: every claim is re-validated against the
// store and taken through a compare-and-set, so duplicate and stale
// messages are discarded for free.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/dispatch"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/stage"
)

// Pool consumes one stage's dispatch queue with a fixed number of workers.
type Pool struct {
	stage             archive.Stage
	handler           stage.Handler
	store             *archive.Store
	queue             dispatch.Queue
	concurrency       int
	heartbeatInterval time.Duration
	retryAttempts     int
	retryBackoff      time.Duration
	logger            *slog.Logger
}

// Options configures a Pool beyond its required collaborators.
type Options struct {
	Concurrency       int
	HeartbeatInterval time.Duration
	RetryAttempts     int
	RetryBackoff      time.Duration
}

func New(st archive.Stage, handler stage.Handler, store *archive.Store, queue dispatch.Queue, opts Options, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 15 * time.Second
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}
	return &Pool{
		stage:             st,
		handler:           handler,
		store:             store,
		queue:             queue,
		concurrency:       opts.Concurrency,
		heartbeatInterval: opts.HeartbeatInterval,
		retryAttempts:     opts.RetryAttempts,
		retryBackoff:      opts.RetryBackoff,
		logger: logger.With(
			logging.String(logging.FieldComponent, "worker"),
			logging.String(logging.FieldStage, string(st))),
	}
}

// Run blocks until the context ends, consuming hints with the configured
// concurrency.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.consume(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) consume(ctx context.Context) {
	for {
		msg, err := p.queue.Receive(ctx, p.stage)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.ErrorContext(ctx, "receive dispatch message", logging.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		p.Handle(ctx, msg)
	}
}

// Handle processes a single hint end to end. Exported so single-shot paths
// and tests can drive the pool without the consume loop.
func (p *Pool) Handle(ctx context.Context, msg dispatch.Message) {
	ctx = services.WithItemID(services.WithStage(ctx, string(p.stage)), msg.ItemID)
	logger := p.logger.With(logging.String(logging.FieldItemID, msg.ItemID))

	item, err := p.store.GetItem(ctx, msg.ItemID)
	if err != nil {
		logger.ErrorContext(ctx, "load item for hint", logging.Error(err))
		return
	}
	if item == nil {
		logger.WarnContext(ctx, "hint names unknown item, dropped")
		return
	}
	if item.Status(p.stage) != archive.StatusQueued {
		// Duplicate or stale hint; someone else already moved the item.
		logger.DebugContext(ctx, "hint dropped, item not queued",
			logging.String("status", string(item.Status(p.stage))))
		return
	}
	if !p.handler.Applicable(item) {
		// The item no longer satisfies the stage preconditions; hand the
		// claim back rather than failing it.
		if _, err := p.store.TransitionStage(ctx, item.ID, p.stage, archive.StatusQueued, archive.StatusPending); err != nil {
			logger.ErrorContext(ctx, "return inapplicable claim", logging.Error(err))
		}
		return
	}

	claimed, err := p.store.TransitionStage(ctx, item.ID, p.stage, archive.StatusQueued, archive.StatusProcessing)
	if err != nil {
		logger.ErrorContext(ctx, "claim item", logging.Error(err))
		return
	}
	if !claimed {
		logger.DebugContext(ctx, "claim lost to another worker, dropped")
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		p.heartbeatLoop(hbCtx, item.ID)
	}()

	processErr := p.processWithRetry(ctx, item)

	stopHeartbeat()
	<-hbDone

	if processErr != nil {
		reason := services.Reason(processErr)
		if _, err := p.store.MarkStageFailed(ctx, item.ID, p.stage, reason); err != nil {
			logger.ErrorContext(ctx, "record stage failure", logging.Error(err))
		}
		logger.ErrorContext(ctx, "stage failed", logging.Error(processErr))
		return
	}
	logger.InfoContext(ctx, "stage completed")
}

func (p *Pool) processWithRetry(ctx context.Context, item *archive.Item) error {
	var lastErr error
	for attempt := 1; attempt <= p.retryAttempts; attempt++ {
		lastErr = p.handler.Process(ctx, item)
		if lastErr == nil {
			return nil
		}
		if !services.Retryable(lastErr) || attempt == p.retryAttempts {
			return lastErr
		}
		p.logger.WarnContext(ctx, "transient stage error, retrying",
			logging.String(logging.FieldItemID, item.ID),
			logging.Int("attempt", attempt),
			logging.Error(lastErr))
		select {
		case <-time.After(p.retryBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		}
	}
	return lastErr
}

func (p *Pool) heartbeatLoop(ctx context.Context, itemID string) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.store.UpdateHeartbeat(ctx, itemID); err != nil && ctx.Err() == nil {
				p.logger.WarnContext(ctx, "heartbeat update failed",
					logging.String(logging.FieldItemID, itemID),
					logging.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Health reports the stage handler's readiness.
func (p *Pool) Health(ctx context.Context) stage.Health {
	return p.handler.HealthCheck(ctx)
}

// Stage returns the stage this pool serves.
func (p *Pool) Stage() archive.Stage {
	return p.stage
}
