// Package api exposes archive operations as transport-neutral services and
// wire views. The daemon's HTTP layer and the CLI both sit on top of it.
package api

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"reelvault/internal/archive"
	"reelvault/internal/query"
	"reelvault/internal/services"
	"reelvault/internal/tags"
)

// ArchiveService answers read and tag requests against the store.
type ArchiveService struct {
	store    *archive.Store
	tagger   *tags.Service
	mediaDir string
}

func NewArchiveService(store *archive.Store, tagger *tags.Service, mediaDir string) *ArchiveService {
	return &ArchiveService{store: store, tagger: tagger, mediaDir: mediaDir}
}

// Items executes a faceted search and projects the page.
func (s *ArchiveService) Items(ctx context.Context, spec query.Spec) (PageView, error) {
	spec = spec.Normalize()
	items, total, err := s.store.Search(ctx, spec)
	if err != nil {
		return PageView{}, err
	}
	summaries := make([]ItemSummary, len(items))
	for i, item := range items {
		summaries[i] = summarize(item)
	}
	return PageView{
		Items:      summaries,
		Pagination: query.Paginate(total, spec.Page, spec.PageSize),
	}, nil
}

// Item returns the full detail view, or a not-found error.
func (s *ArchiveService) Item(ctx context.Context, id string) (ItemDetail, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return ItemDetail{}, err
	}
	if item == nil {
		return ItemDetail{}, services.Wrap(services.ErrNotFound, "", "get_item", "item "+id+" not found", nil)
	}
	assignments, err := s.store.ItemTags(ctx, id)
	if err != nil {
		return ItemDetail{}, err
	}
	return detail(item, assignments), nil
}

// Stats aggregates archive-wide progress.
func (s *ArchiveService) Stats(ctx context.Context) (StatsView, error) {
	stats, err := s.store.ComputeStats(ctx)
	if err != nil {
		return StatsView{}, err
	}
	return StatsView{
		Total:       stats.Total,
		Videos:      stats.Videos,
		Images:      stats.Images,
		Downloaded:  stats.Downloaded,
		Transcribed: stats.Transcribed,
		OCRd:        stats.OCRd,
		Autotagged:  stats.Autotagged,
		Tagged:      stats.Tagged,
		Failed:      stats.Failed,
		SourceGone:  stats.SourceGone,
	}, nil
}

// Tags lists every tag with live counts.
func (s *ArchiveService) Tags(ctx context.Context) ([]TagCountView, error) {
	counts, err := s.tagger.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]TagCountView, len(counts))
	for i, tc := range counts {
		views[i] = TagCountView{Name: tc.Name, Manual: tc.Manual, Automatic: tc.Automatic, Total: tc.Total()}
	}
	return views, nil
}

// AssignTag attaches a manual tag.
func (s *ArchiveService) AssignTag(ctx context.Context, itemID, name string) (bool, error) {
	return s.tagger.Assign(ctx, itemID, name)
}

// RemoveTag removes a manual tag assignment.
func (s *ArchiveService) RemoveTag(ctx context.Context, itemID, name string) (bool, error) {
	return s.tagger.Unassign(ctx, itemID, name, archive.TagOriginManual)
}

// MediaPath resolves the absolute on-disk media file for an item.
func (s *ArchiveService) MediaPath(ctx context.Context, id string) (string, archive.ContentType, error) {
	item, err := s.requireDownloaded(ctx, id)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.mediaDir, item.MediaPath), item.ContentType, nil
}

// ThumbnailPath resolves the absolute thumbnail file for an item.
func (s *ArchiveService) ThumbnailPath(ctx context.Context, id string) (string, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return "", err
	}
	if item == nil || item.ThumbnailPath == "" {
		return "", services.Wrap(services.ErrNotFound, "", "thumbnail", "no thumbnail for item "+id, nil)
	}
	return filepath.Join(s.mediaDir, item.ThumbnailPath), nil
}

// ImageNames lists the entries of an item's image bundle in carousel order.
func (s *ArchiveService) ImageNames(ctx context.Context, id string) ([]string, error) {
	item, err := s.requireDownloaded(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.ContentType != archive.ContentImages {
		return nil, services.Wrap(services.ErrValidation, "", "images", "item "+id+" is not an image post", nil)
	}
	reader, err := zip.OpenReader(filepath.Join(s.mediaDir, item.MediaPath))
	if err != nil {
		return nil, fmt.Errorf("open image bundle: %w", err)
	}
	defer reader.Close()
	names := make([]string, len(reader.File))
	for i, file := range reader.File {
		names[i] = file.Name
	}
	return names, nil
}

// Image reads one image from an item's bundle by zero-based carousel index.
func (s *ArchiveService) Image(ctx context.Context, id string, index int) ([]byte, error) {
	item, err := s.requireDownloaded(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.ContentType != archive.ContentImages {
		return nil, services.Wrap(services.ErrValidation, "", "images", "item "+id+" is not an image post", nil)
	}
	reader, err := zip.OpenReader(filepath.Join(s.mediaDir, item.MediaPath))
	if err != nil {
		return nil, fmt.Errorf("open image bundle: %w", err)
	}
	defer reader.Close()
	if index < 0 || index >= len(reader.File) {
		return nil, services.Wrap(services.ErrNotFound, "", "images",
			fmt.Sprintf("item %s has no image %d", id, index), nil)
	}
	rc, err := reader.File[index].Open()
	if err != nil {
		return nil, fmt.Errorf("open image %d: %w", index, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ArchiveService) requireDownloaded(ctx context.Context, id string) (*archive.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "get_item", "item "+id+" not found", nil)
	}
	if !item.Downloaded() || item.MediaPath == "" {
		return nil, services.Wrap(services.ErrNotFound, "", "media", "item "+id+" has no downloaded media", nil)
	}
	return item, nil
}
