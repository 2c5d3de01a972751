// Package tags normalizes and manages tag assignments on archive items.
// Tags exist only as live assignments; removing the last assignment of a
// name removes the tag itself.
package tags

import (
	"context"
	"log/slog"

	"reelvault/internal/archive"
	"reelvault/internal/logging"
	"reelvault/internal/services"
	"reelvault/internal/textutil"
)

// Normalize canonicalizes a tag name via textutil.NormalizeTag, the same
// transform the query facet applies to filter names. Returns a validation
// error when nothing remains.
func Normalize(raw string) (string, error) {
	name := textutil.NormalizeTag(raw)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "", "normalize_tag", "invalid tag", nil)
	}
	return name, nil
}

// Service applies tag operations against the archive store.
type Service struct {
	store  *archive.Store
	logger *slog.Logger
}

func NewService(store *archive.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, logger: logger.With(logging.String(logging.FieldComponent, "tags"))}
}

// Assign attaches a manual tag to an item. Idempotent; assigning an
// already-present (name, origin) pair reports assigned=false.
func (s *Service) Assign(ctx context.Context, itemID, name string) (bool, error) {
	return s.assign(ctx, itemID, name, archive.TagOriginManual, "", 0)
}

// AssignAutomatic attaches a classifier-produced tag with its confidence.
func (s *Service) AssignAutomatic(ctx context.Context, itemID, name, sourceStage string, confidence float64) (bool, error) {
	return s.assign(ctx, itemID, name, archive.TagOriginAutomatic, sourceStage, confidence)
}

func (s *Service) assign(ctx context.Context, itemID, name string, origin archive.TagOrigin, sourceStage string, confidence float64) (bool, error) {
	normalized, err := Normalize(name)
	if err != nil {
		return false, err
	}
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, services.Wrap(services.ErrNotFound, "", "assign_tag", "item "+itemID+" not found", nil)
	}
	assigned, err := s.store.AssignTag(ctx, itemID, normalized, origin, sourceStage, confidence)
	if err != nil {
		return false, err
	}
	if assigned {
		s.logger.InfoContext(ctx, "tag assigned",
			logging.String(logging.FieldItemID, itemID),
			logging.String("tag", normalized),
			logging.String("origin", string(origin)))
	}
	return assigned, nil
}

// Unassign removes one origin's assignment of a tag. Manual removal never
// touches an automatic assignment of the same name. Idempotent.
func (s *Service) Unassign(ctx context.Context, itemID, name string, origin archive.TagOrigin) (bool, error) {
	normalized, err := Normalize(name)
	if err != nil {
		return false, err
	}
	removed, err := s.store.UnassignTag(ctx, itemID, normalized, origin)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "tag removed",
			logging.String(logging.FieldItemID, itemID),
			logging.String("tag", normalized),
			logging.String("origin", string(origin)))
	}
	return removed, nil
}

// List returns every tag name with live assignment counts split by origin.
func (s *Service) List(ctx context.Context) ([]archive.TagCount, error) {
	return s.store.ListTags(ctx)
}

// ItemTags returns the assignments on a single item.
func (s *Service) ItemTags(ctx context.Context, itemID string) ([]archive.Tag, error) {
	return s.store.ItemTags(ctx, itemID)
}
