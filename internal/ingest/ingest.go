// Package ingest turns favorites exports and raw share links into archive
// rows. Everything downstream of the (id, link, favorited time) triple is
// the pipeline's job.
package ingest

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
)

// Record is one favorite to ingest. Only the link is required; metadata
// fields present in richer exports are stored up front, and a declared
// content type resolves stage applicability before the download runs.
type Record struct {
	Link        string    `json:"link"`
	FavoritedAt time.Time `json:"favorited_at,omitzero"`

	Title           string  `json:"title,omitempty"`
	Uploader        string  `json:"uploader,omitempty"`
	UploaderID      string  `json:"uploader_id,omitempty"`
	Description     string  `json:"description,omitempty"`
	ContentType     string  `json:"content_type,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ImageCount      int     `json:"image_count,omitempty"`
}

func (r Record) hasMetadata() bool {
	return r.Title != "" || r.Uploader != "" || r.UploaderID != "" || r.Description != "" ||
		r.DurationSeconds != 0 || r.ImageCount != 0
}

// Outcome statuses for one ingested record.
const (
	OutcomeInserted = "inserted"
	OutcomeSkipped  = "skipped"
	OutcomeInvalid  = "invalid"
)

// Outcome reports what happened to one record.
type Outcome struct {
	Link   string `json:"link"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Service inserts favorites into the archive.
type Service struct {
	store  *archive.Store
	logger *slog.Logger
}

func NewService(store *archive.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, logger: logger.With(logging.String(logging.FieldComponent, "ingest"))}
}

// Batch ingests records one by one. Duplicates are skipped, unparseable
// links reported invalid; neither aborts the batch.
func (s *Service) Batch(ctx context.Context, records []Record) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(records))
	inserted := 0
	for _, record := range records {
		outcome := Outcome{Link: record.Link}
		id, err := ExtractID(record.Link)
		if err != nil {
			outcome.Status = OutcomeInvalid
			outcome.Reason = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.ID = id

		favorited := record.FavoritedAt
		if favorited.IsZero() {
			favorited = time.Now()
		}
		ok, err := s.store.InsertItem(ctx, id, record.Link, favorited)
		if err != nil {
			return outcomes, err
		}
		if ok {
			outcome.Status = OutcomeInserted
			inserted++
			if err := s.applyMetadata(ctx, id, record); err != nil {
				return outcomes, err
			}
		} else {
			outcome.Status = OutcomeSkipped
			outcome.Reason = "already archived"
		}
		outcomes = append(outcomes, outcome)
	}
	s.logger.InfoContext(ctx, "batch ingested",
		logging.Int("records", len(records)),
		logging.Int("inserted", inserted))
	return outcomes, nil
}

// applyMetadata stores whatever descriptive fields the record carried.
// A declared content type also settles which derived stages apply, so the
// item needs no download before those facets read correctly.
func (s *Service) applyMetadata(ctx context.Context, id string, record Record) error {
	if record.hasMetadata() {
		meta := archive.ItemMetadata{
			Title:           record.Title,
			Uploader:        record.Uploader,
			UploaderID:      record.UploaderID,
			Description:     record.Description,
			DurationSeconds: record.DurationSeconds,
			ImageCount:      record.ImageCount,
		}
		if err := s.store.UpdateItemMetadata(ctx, id, meta); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(record.ContentType)) {
	case "video":
		if _, err := s.store.SetContentType(ctx, id, archive.ContentVideo); err != nil {
			return err
		}
	case "images":
		if _, err := s.store.SetContentType(ctx, id, archive.ContentImages); err != nil {
			return err
		}
	}
	return nil
}

// Links ingests raw share links favorited now.
func (s *Service) Links(ctx context.Context, links []string) ([]Outcome, error) {
	records := make([]Record, len(links))
	for i, link := range links {
		records[i] = Record{Link: link}
	}
	return s.Batch(ctx, records)
}

// ExtractID pulls the numeric post id out of a share link. Accepts full
// post URLs whose last path segment is the id, and bare numeric ids.
func ExtractID(link string) (string, error) {
	trimmed := strings.TrimSpace(link)
	if trimmed == "" {
		return "", errInvalidLink("empty link")
	}
	if isDigits(trimmed) {
		return trimmed, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", errInvalidLink("not a url")
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	if !isDigits(last) || last == "" {
		return "", errInvalidLink("no numeric post id in path")
	}
	return last, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type errInvalidLink string

func (e errInvalidLink) Error() string { return string(e) }
