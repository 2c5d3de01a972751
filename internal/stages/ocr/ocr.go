// Package ocr extracts on-screen text from downloaded image carousels.
// Each image in the bundle is sent to the OCR service and the per-image
// texts are joined in carousel order.
package ocr

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/services/vision"
	"reelvault/internal/stage"
)

// Handler implements the OCR stage.
type Handler struct {
	store    *archive.Store
	client   vision.Client
	mediaDir string
	logger   *slog.Logger
}

func New(store *archive.Store, client vision.Client, mediaDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:    store,
		client:   client,
		mediaDir: mediaDir,
		logger:   logger.With(logging.String(logging.FieldComponent, "ocr")),
	}
}

// Applicable: only downloaded image carousels have frames to read.
func (h *Handler) Applicable(item *archive.Item) bool {
	return item.ContentType == archive.ContentImages && item.Downloaded() && item.MediaPath != ""
}

func (h *Handler) Process(ctx context.Context, item *archive.Item) error {
	reader, err := zip.OpenReader(filepath.Join(h.mediaDir, item.MediaPath))
	if err != nil {
		return fmt.Errorf("open image bundle: %w", err)
	}
	defer reader.Close()

	var texts []string
	for _, file := range reader.File {
		payload, err := readBundleFile(file)
		if err != nil {
			return fmt.Errorf("read %s from bundle: %w", file.Name, err)
		}
		text, err := h.client.ExtractText(ctx, payload)
		if err != nil {
			return err
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	combined := strings.Join(texts, "\n\n")
	applied, err := h.store.SetOCRText(ctx, item.ID, combined)
	if err != nil {
		return err
	}
	if !applied {
		h.logger.WarnContext(ctx, "ocr text discarded, claim was lost",
			logging.String(logging.FieldItemID, item.ID))
		return nil
	}
	h.logger.InfoContext(ctx, "ocr text stored",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("images", len(reader.File)),
		logging.Int("chars", len(combined)))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.Ping(ctx); err != nil {
		return stage.Unhealthy("ocr", err.Error())
	}
	return stage.Healthy("ocr")
}

func readBundleFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
