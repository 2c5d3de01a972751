package archive

import (
	"context"
	"fmt"
)

// ComputeStats aggregates archive-wide progress counts in one pass over the
// items table plus one over item_tags.
func (s *Store) ComputeStats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)

	var stats Stats
	err := s.db.QueryRowContext(ctx, `SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN content_type = 'video' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN content_type = 'images' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN download_status = 'done' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN transcription_status = 'done' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN ocr_status = 'done' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN autotag_status = 'done' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN download_status = 'failed' OR transcription_status = 'failed'
                  OR ocr_status = 'failed' OR autotag_status = 'failed' THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN source_gone = 1 THEN 1 ELSE 0 END), 0)
        FROM items`,
	).Scan(
		&stats.Total,
		&stats.Videos,
		&stats.Images,
		&stats.Downloaded,
		&stats.Transcribed,
		&stats.OCRd,
		&stats.Autotagged,
		&stats.Failed,
		&stats.SourceGone,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("compute item stats: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT item_id) FROM item_tags`,
	).Scan(&stats.Tagged)
	if err != nil {
		return Stats{}, fmt.Errorf("compute tag stats: %w", err)
	}

	return stats, nil
}
