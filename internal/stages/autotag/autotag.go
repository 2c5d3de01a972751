// Package autotag classifies an item's accumulated text against the
// configured label set and assigns automatic tags for confident matches.
package autotag

import (
	"context"
	"log/slog"
	"strings"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/logging"
	"reelvault/internal/services/classify"
	"reelvault/internal/stage"
	"reelvault/internal/tags"
)

// Handler implements the automatic tagging stage.
type Handler struct {
	store     *archive.Store
	client    classify.Client
	tagger    *tags.Service
	labels    []string
	threshold float64
	logger    *slog.Logger
}

func New(store *archive.Store, client classify.Client, tagger *tags.Service, cfg config.Autotag, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:     store,
		client:    client,
		tagger:    tagger,
		labels:    cfg.Labels,
		threshold: cfg.ConfidenceThreshold,
		logger:    logger.With(logging.String(logging.FieldComponent, "autotag")),
	}
}

// Applicable: classification needs derived text from at least one upstream
// stage.
func (h *Handler) Applicable(item *archive.Item) bool {
	return item.TranscriptionStatus == archive.StatusDone || item.OCRStatus == archive.StatusDone
}

func (h *Handler) Process(ctx context.Context, item *archive.Item) error {
	text := composeText(item)
	if text == "" {
		// Nothing to classify still completes the stage.
		_, err := h.store.SetAutotagDone(ctx, item.ID)
		return err
	}

	predictions, err := h.client.Classify(ctx, text, h.labels)
	if err != nil {
		return err
	}

	assigned := 0
	for _, prediction := range predictions {
		if prediction.Score < h.threshold {
			continue
		}
		ok, err := h.tagger.AssignAutomatic(ctx, item.ID, prediction.Label, string(archive.StageAutotag), prediction.Score)
		if err != nil {
			return err
		}
		if ok {
			assigned++
		}
	}

	applied, err := h.store.SetAutotagDone(ctx, item.ID)
	if err != nil {
		return err
	}
	if !applied {
		h.logger.WarnContext(ctx, "autotag result discarded, claim was lost",
			logging.String(logging.FieldItemID, item.ID))
		return nil
	}
	h.logger.InfoContext(ctx, "automatic tags assigned",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("assigned", assigned))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.Ping(ctx); err != nil {
		return stage.Unhealthy("autotag", err.Error())
	}
	return stage.Healthy("autotag")
}

// composeText concatenates every text surface the pipeline has produced
// for the item.
func composeText(item *archive.Item) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{item.Title, item.Description, item.TranscriptionText, item.OCRText} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}
