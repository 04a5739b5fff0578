// internal/domain/product/pagination.go
package product

// Pagination is the page metadata returned with every list
type Pagination struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

// NewPagination computes the last page, which is at least 1
func NewPagination(total int64, perPage, page int) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    lastPage,
	}
}

// Offset of the current page
func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.PerPage
}
