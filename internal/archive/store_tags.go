package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AssignTag attaches a tag to an item. Assignment is idempotent per
// (item, name, origin); re-assigning refreshes nothing. The name must
// already be normalized by the tagging layer.
func (s *Store) AssignTag(ctx context.Context, itemID, name string, origin TagOrigin, sourceStage string, confidence float64) (bool, error) {
	var stage any
	if sourceStage != "" {
		stage = sourceStage
	}
	var conf any
	if origin == TagOriginAutomatic {
		conf = confidence
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO item_tags (item_id, name, origin, source_stage, confidence, assigned_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, name, string(origin), stage, conf, formatTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("assign tag %q to %s: %w", name, itemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign tag %q to %s: %w", name, itemID, err)
	}
	return affected > 0, nil
}

// UnassignTag removes one origin's assignment of a tag from an item.
// Removing a manual tag never touches an automatic assignment of the same
// name, and vice versa. Idempotent.
func (s *Store) UnassignTag(ctx context.Context, itemID, name string, origin TagOrigin) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM item_tags WHERE item_id = ? AND name = ? AND origin = ?`,
		itemID, name, string(origin),
	)
	if err != nil {
		return false, fmt.Errorf("unassign tag %q from %s: %w", name, itemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unassign tag %q from %s: %w", name, itemID, err)
	}
	return affected > 0, nil
}

// ItemTags returns every tag assignment on an item, name order.
func (s *Store) ItemTags(ctx context.Context, itemID string) ([]Tag, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, origin, source_stage, confidence, assigned_at
         FROM item_tags WHERE item_id = ? ORDER BY name, origin`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags for %s: %w", itemID, err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var (
			tag         Tag
			origin      string
			sourceStage sql.NullString
			confidence  sql.NullFloat64
			assignedRaw string
		)
		if err := rows.Scan(&tag.Name, &origin, &sourceStage, &confidence, &assignedRaw); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		tag.Origin = TagOrigin(origin)
		tag.SourceStage = sourceStage.String
		tag.Confidence = confidence.Float64
		tag.AssignedAt = parseTime(assignedRaw)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ListTags aggregates live assignment counts per tag name, split by origin.
// Tags exist only as assignments, so a name disappears when its last
// assignment is removed.
func (s *Store) ListTags(ctx context.Context) ([]TagCount, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name,
            SUM(CASE WHEN origin = 'manual' THEN 1 ELSE 0 END),
            SUM(CASE WHEN origin = 'automatic' THEN 1 ELSE 0 END)
         FROM item_tags GROUP BY name ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Manual, &tc.Automatic); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}
