package models

type PaginatedResponse struct {
	Meta  Meta        `json:"meta"`
	Items interface{} `json:"items"`
}

type Meta struct {
	TotalItems     int `json:"total_items"`
	TotalPages     int `json:"total_pages"`
	CurrentPage    int `json:"current_page"`
	PerPage        int `json:"per_page"`
	RemainingCount int `json:"remaining_count"`
}

// NewMeta fills the paging block the list endpoints return.
func NewMeta(totalItems int64, page, limit int) Meta {
	if limit < 1 {
		limit = 1
	}
	totalPages := (int(totalItems) + limit - 1) / limit
	remaining := int(totalItems) - page*limit
	if remaining < 0 {
		remaining = 0
	}
	return Meta{
		TotalItems:     int(totalItems),
		TotalPages:     totalPages,
		CurrentPage:    page,
		PerPage:        limit,
		RemainingCount: remaining,
	}
}
