package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a normalized 1-based page request.
type Page struct {
	Index int
	Size  int
}

// Normalize clamps a raw page request: index below 1 becomes 1, size below 1
// becomes DefaultPageSize and size above MaxPageSize becomes MaxPageSize.
func Normalize(index, size int) Page {
	if index < 1 {
		index = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Index: index, Size: size}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Index - 1) * p.Size
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageIndex  int   `json:"pageIndex"`
	PageSize   int   `json:"pageSize"`
}

// NewPageResult wraps items with the page they were read for. A nil slice is
// replaced with an empty one so it encodes as [].
func NewPageResult[T any](items []T, total int64, p Page) *PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResult[T]{
		Items:      items,
		TotalCount: total,
		PageIndex:  p.Index,
		PageSize:   p.Size,
	}
}

// TotalPages returns the number of pages needed for TotalCount.
func (r *PageResult[T]) TotalPages() int {
	if r.PageSize <= 0 {
		return 0
	}
	return int((r.TotalCount + int64(r.PageSize) - 1) / int64(r.PageSize))
}
