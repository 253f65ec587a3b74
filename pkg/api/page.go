package api

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PageMeta describes one page of a listing.
type PageMeta struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// Page is a slice of items plus its pagination meta.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// NewPageMeta derives pages and navigation flags from the total count.
// page and perPage below 1 are treated as 1.
func NewPageMeta(page, perPage, total int) PageMeta {
	page = max(1, page)
	perPage = max(1, perPage)
	total = max(0, total)

	pages := max(1, (total+perPage-1)/perPage)

	return PageMeta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// Normalize fills in derived fields a server may have omitted.
func (m PageMeta) Normalize(page, perPage int) PageMeta {
	if m.Page == 0 {
		m.Page = page
	}
	if m.PerPage == 0 {
		m.PerPage = perPage
	}
	return NewPageMeta(m.Page, m.PerPage, m.Total)
}

// Offset is the number of rows to skip for the given page.
func Offset(page, perPage int) int {
	return (max(1, page) - 1) * max(1, perPage)
}

// ClampPerPage keeps a requested page size within [1, MaxPerPage],
// substituting DefaultPerPage for unset values.
func ClampPerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	return min(perPage, MaxPerPage)
}
