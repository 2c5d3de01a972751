package query

// Pagination describes the page window of a result set under the current
// filter, not the whole archive.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate computes pagination metadata for a total row count.
func Paginate(total, page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := (total + pageSize - 1) / pageSize
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page*pageSize < total,
		HasPrev:    page > 1 && total > 0,
	}
}
