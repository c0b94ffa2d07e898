package table

// DefaultPageSize is used when a table is built without WithPageSize.
const DefaultPageSize = 10

// TotalPages returns ceil(total/pageSize); zero rows means zero pages.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Clamp keeps page inside [1, totalPages]. With no pages it returns 1.
func Clamp(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Pager is the transient page state of one table view.
//
// It remembers the row count it last saw and resets to page 1 when that
// count changes, so a shrinking filter never strands the viewer on a page
// past the end.
type Pager struct {
	page     int
	pageSize int
	total    int
	observed bool
}

// NewPager returns a pager on page 1.
func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{page: 1, pageSize: pageSize}
}

// Observe records the current row count.
func (p *Pager) Observe(total int) {
	if total < 0 {
		total = 0
	}
	if p.observed && total != p.total {
		p.page = 1
	}
	p.total = total
	p.observed = true
	p.page = Clamp(p.page, p.TotalPages())
}

func (p *Pager) Page() int       { return p.page }
func (p *Pager) PageSize() int   { return p.pageSize }
func (p *Pager) Total() int      { return p.total }
func (p *Pager) TotalPages() int { return TotalPages(p.total, p.pageSize) }

// SetPage moves to n after clamping it and returns the applied page.
func (p *Pager) SetPage(n int) int {
	p.page = Clamp(n, p.TotalPages())
	return p.page
}

func (p *Pager) First() int { return p.SetPage(1) }
func (p *Pager) Last() int  { return p.SetPage(p.TotalPages()) }
func (p *Pager) Prev() int  { return p.SetPage(p.page - 1) }
func (p *Pager) Next() int  { return p.SetPage(p.page + 1) }

// HasPrev reports whether first/prev are enabled.
func (p *Pager) HasPrev() bool { return p.page > 1 }

// HasNext reports whether next/last are enabled.
func (p *Pager) HasNext() bool { return p.page < p.TotalPages() }

// bounds returns the half-open row range of the current page.
func (p *Pager) bounds() (start, end int) {
	start = (p.page - 1) * p.pageSize
	if start > p.total {
		start = p.total
	}
	end = start + p.pageSize
	if end > p.total {
		end = p.total
	}
	return start, end
}
