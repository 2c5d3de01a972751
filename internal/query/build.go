package query

import "strings"

// searchColumns are matched by the free-text facet; deepSearchColumns extend
// the match to derived text for the dedicated search boundary.
var (
	searchColumns     = []string{"title", "uploader", "description"}
	deepSearchColumns = []string{"title", "uploader", "description", "transcription_text", "ocr_text"}
)

// OrderClause is the stable result ordering: newest favorite first, ties
// broken by item id so pagination stays stable across ingestions.
const OrderClause = "ORDER BY favorited_at DESC, id DESC"

// Build renders the spec as a SQL conjunction over the items table. The
// returned clause omits the WHERE keyword and is empty when no facet is
// active. empty reports a request that is unsatisfiable by construction
// (empty content-type subset) and must yield zero results without touching
// the database.
func (s Spec) Build() (clause string, args []any, empty bool) {
	if s.ContentTypes != nil && len(s.ContentTypes) == 0 {
		return "", nil, true
	}

	var conds []string

	switch s.Download {
	case Downloaded:
		conds = append(conds, "download_status = ?")
		args = append(args, "done")
	case NotDownloaded:
		conds = append(conds, "download_status <> ?")
		args = append(args, "done")
	}

	if len(s.ContentTypes) > 0 {
		placeholders := make([]string, len(s.ContentTypes))
		for i, ct := range s.ContentTypes {
			placeholders[i] = "?"
			args = append(args, ct)
		}
		conds = append(conds, "content_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	switch s.Transcription {
	case StageDone:
		conds = append(conds, "transcription_status = ?")
		args = append(args, "done")
	case StageNotDone:
		conds = append(conds, "transcription_status <> ?")
		args = append(args, "done")
	}

	switch s.OCR {
	case StageDone:
		conds = append(conds, "ocr_status = ?")
		args = append(args, "done")
	case StageNotDone:
		conds = append(conds, "ocr_status <> ?")
		args = append(args, "done")
	}

	switch s.TagPresence {
	case TagsTagged:
		conds = append(conds, "EXISTS (SELECT 1 FROM item_tags t WHERE t.item_id = items.id)")
	case TagsUntagged:
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM item_tags t WHERE t.item_id = items.id)")
	}

	if s.TagsApplied() {
		placeholders := make([]string, len(s.Tags))
		for i, tag := range s.Tags {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		in := strings.Join(placeholders, ", ")
		switch s.TagMode {
		case TagModeOr:
			conds = append(conds, "items.id IN (SELECT item_id FROM item_tags WHERE name IN ("+in+"))")
		default:
			conds = append(conds,
				"items.id IN (SELECT item_id FROM item_tags WHERE name IN ("+in+
					") GROUP BY item_id HAVING COUNT(DISTINCT name) = ?)")
			args = append(args, len(s.Tags))
		}
	}

	if s.Search != "" {
		columns := searchColumns
		if s.SearchDeep {
			columns = deepSearchColumns
		}
		pattern := "%" + escapeLike(s.Search) + "%"
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = col + " LIKE ? ESCAPE '\\' COLLATE NOCASE"
			args = append(args, pattern)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	return strings.Join(conds, " AND "), args, false
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
