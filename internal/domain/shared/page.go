package shared

// DefaultPageSize applies when a caller leaves the page size unset
const DefaultPageSize = 20

// Filter carries the paging, ordering and free-text search every list
// query accepts. Repositories whitelist OrderBy themselves.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter asks for the first page, newest first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderDir: "desc"}
}

// Offset is the number of rows skipped before the requested page
func (f Filter) Offset() int {
	if f.Page < 2 || f.PageSize < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// PageCount is how many pages of size pageSize it takes to hold total rows
func PageCount(total int64, pageSize int) int {
	if pageSize < 1 || total < 1 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Paginated is one page of a list result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: PageCount(total, pageSize),
	}
}
