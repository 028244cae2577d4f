package store

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage keeps Skip far from integer overflow. Pages beyond it are empty
	// for any realistic catalog anyway.
	MaxPage = 1_000_000
)

// Page is a zero-based offset window.
type Page struct {
	Page  int
	Limit int
}

func NewPage(page, limit int) Page {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Skip() int {
	return p.Page * p.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(p Page, total int64) Pagination {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		totalPages++
	}
	return Pagination{Page: p.Page, Limit: p.Limit, TotalPages: totalPages}
}

// Window slices an in-memory result set the way a skip/limit query would.
func Window[T any](items []T, p *Page) []T {
	if p == nil {
		return items
	}
	start := p.Skip()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
