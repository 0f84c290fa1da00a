package page

// Meta is the pagination metadata of a result page.
type Meta struct {
	Page        int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// Window is a row range over an ordered sequence.
type Window struct {
	Offset int
	Limit  int
}

// Result is one page of an ordered sequence.
type Result[T any] struct {
	Items []T
	Meta  Meta
}

// NewMeta computes pagination metadata.
// TotalPages = ceil(total/pageSize), or 1 when total is 0. An empty result always resolves to page 1.
// Callers validate page >= 1 and pageSize >= 1; smaller values are treated as 1.
func NewMeta(pageNum, pageSize, total int) Meta {
	pageNum = max(pageNum, 1)
	pageSize = max(pageSize, 1)
	total = max(total, 0)

	totalPages := 1
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	} else {
		pageNum = 1
	}

	return Meta{
		Page:        pageNum,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     pageNum < totalPages,
		HasPrevious: pageNum > 1,
	}
}

// Slice returns items[(page-1)*pageSize : page*pageSize] clamped to the sequence bounds.
// Pages past the end yield an empty slice, never an error.
func Slice[T any](items []T, pageNum, pageSize int) Result[T] {
	meta := NewMeta(pageNum, pageSize, len(items))

	start := (meta.Page - 1) * meta.PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + meta.PageSize
	if end > len(items) {
		end = len(items)
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return Result[T]{Items: out, Meta: meta}
}
