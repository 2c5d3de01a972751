// Package transcribe runs downloaded videos through the speech-to-text
// service and stores the transcript.
package transcribe

import (
	"context"
	"log/slog"
	"path/filepath"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/services/speech"
	"reelvault/internal/stage"
)

// Handler implements the transcription stage.
type Handler struct {
	store    *archive.Store
	client   speech.Client
	mediaDir string
	logger   *slog.Logger
}

func New(store *archive.Store, client speech.Client, mediaDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:    store,
		client:   client,
		mediaDir: mediaDir,
		logger:   logger.With(logging.String(logging.FieldComponent, "transcribe")),
	}
}

// Applicable: only downloaded videos carry audio to transcribe.
func (h *Handler) Applicable(item *archive.Item) bool {
	return item.ContentType == archive.ContentVideo && item.Downloaded() && item.MediaPath != ""
}

func (h *Handler) Process(ctx context.Context, item *archive.Item) error {
	text, err := h.client.Transcribe(ctx, filepath.Join(h.mediaDir, item.MediaPath))
	if err != nil {
		return err
	}

	applied, err := h.store.SetTranscription(ctx, item.ID, text)
	if err != nil {
		return err
	}
	if !applied {
		h.logger.WarnContext(ctx, "transcript discarded, claim was lost",
			logging.String(logging.FieldItemID, item.ID))
		return nil
	}
	h.logger.InfoContext(ctx, "transcription stored",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("chars", len(text)))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.Ping(ctx); err != nil {
		return stage.Unhealthy("transcription", err.Error())
	}
	return stage.Healthy("transcription")
}
