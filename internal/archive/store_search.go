package archive

import (
	"context"
	"fmt"

	"reelvault/internal/query"
)

// Search executes a normalized query spec and returns the requested page of
// items plus the total matching count. A spec that is unsatisfiable by
// construction returns an empty page without touching the database.
func (s *Store) Search(ctx context.Context, spec query.Spec) ([]*Item, int, error) {
	clause, args, empty := spec.Build()
	if empty {
		return nil, 0, nil
	}

	where := ""
	if clause != "" {
		where = " WHERE " + clause
	}

	ctx = ensureContext(ctx)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	pageArgs := append(append([]any{}, args...), spec.PageSize, spec.Offset())
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM items`+where+` `+query.OrderClause+` LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
