// Package download fetches a favorite's media from the source and lands it
// in the media directory: one .mp4 for videos, one .zip of ordered frames
// for image carousels, plus a best-effort thumbnail.
package download

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/services/source"
	"reelvault/internal/stage"
)

// Handler implements the download stage.
type Handler struct {
	store    *archive.Store
	client   source.Client
	mediaDir string
	logger   *slog.Logger
}

func New(store *archive.Store, client source.Client, mediaDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:    store,
		client:   client,
		mediaDir: mediaDir,
		logger:   logger.With(logging.String(logging.FieldComponent, "download")),
	}
}

// Applicable: any item with a source URL can be downloaded.
func (h *Handler) Applicable(item *archive.Item) bool {
	return item.SourceURL != ""
}

// Process fetches the media, writes it to disk, and records the result
// through the store's guarded write. A lost claim discards the result
// silently; the deterministic file names make the disk write idempotent.
func (h *Handler) Process(ctx context.Context, item *archive.Item) error {
	media, err := h.client.Fetch(ctx, item.SourceURL)
	if errors.Is(err, source.ErrGone) {
		if markErr := h.store.MarkSourceGone(ctx, item.ID); markErr != nil {
			return markErr
		}
		return err
	}
	if errors.Is(err, source.ErrPrivate) {
		if markErr := h.store.MarkSourcePrivate(ctx, item.ID); markErr != nil {
			return markErr
		}
		return err
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(h.mediaDir, 0o755); err != nil {
		return fmt.Errorf("ensure media dir: %w", err)
	}

	result := archive.DownloadResult{
		Title:           media.Title,
		Uploader:        media.Uploader,
		UploaderID:      media.UploaderID,
		Description:     media.Description,
		ContentType:     media.ContentType,
		DurationSeconds: media.DurationSeconds,
		CreatedAt:       media.CreatedAt,
	}

	switch media.ContentType {
	case archive.ContentVideo:
		result.MediaPath = item.ID + ".mp4"
		if err := os.WriteFile(filepath.Join(h.mediaDir, result.MediaPath), media.Video, 0o644); err != nil {
			return fmt.Errorf("write video: %w", err)
		}
	case archive.ContentImages:
		result.MediaPath = item.ID + ".zip"
		result.ImageCount = len(media.Images)
		if err := writeImageBundle(filepath.Join(h.mediaDir, result.MediaPath), media.Images); err != nil {
			return fmt.Errorf("write image bundle: %w", err)
		}
	default:
		return fmt.Errorf("unsupported content type %q", media.ContentType)
	}

	if len(media.Thumbnail) > 0 {
		result.ThumbnailPath = item.ID + "_thumb.jpg"
		if err := os.WriteFile(filepath.Join(h.mediaDir, result.ThumbnailPath), media.Thumbnail, 0o644); err != nil {
			return fmt.Errorf("write thumbnail: %w", err)
		}
	}

	applied, err := h.store.SetDownloaded(ctx, item.ID, result)
	if err != nil {
		return err
	}
	if !applied {
		h.logger.WarnContext(ctx, "download result discarded, claim was lost",
			logging.String(logging.FieldItemID, item.ID))
	}
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.Ping(ctx); err != nil {
		return stage.Unhealthy("download", err.Error())
	}
	return stage.Healthy("download")
}

// writeImageBundle packs carousel images into a zip, preserving order in
// the entry names.
func writeImageBundle(path string, images [][]byte) error {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i, img := range images {
		entry, err := w.Create(fmt.Sprintf("image_%03d.jpg", i+1))
		if err != nil {
			return err
		}
		if _, err := entry.Write(img); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
