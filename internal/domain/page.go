package domain

// Page is one page of a listing. Total and TotalPages describe the fetched
// page only; NextToken continues the underlying scan when more items exist.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	NextToken  string `json:"nextToken,omitempty"`
}

// NewPage builds the page metadata from the fetched items.
func NewPage[T any](items []T, page, limit int, nextToken string) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (len(items) + limit - 1) / limit
	}
	return Page[T]{
		Items:      items,
		Total:      len(items),
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		NextToken:  nextToken,
	}
}
