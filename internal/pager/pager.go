// Package pager computes offset-based pagination for the task history.
package pager

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// Pager describes one page of a listing of Total items.
type Pager struct {
	Page  int
	Limit int
	Total int
}

// New returns a Pager for a 1-based page. Pages below 1 clamp to 1 and a
// non-positive limit falls back to DefaultLimit.
func New(page, limit, total int) Pager {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	return Pager{Page: page, Limit: limit, Total: total}
}

// Offset is the number of items before this page.
func (p Pager) Offset() int { return (p.Page - 1) * p.Limit }

// HasPrev reports whether a previous page exists.
func (p Pager) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p Pager) HasNext() bool { return p.Page*p.Limit < p.Total }

// Prev returns the previous page number, never below 1.
func (p Pager) Prev() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// Next returns the next page number.
func (p Pager) Next() int { return p.Page + 1 }

// Pages is the number of pages needed for Total items; at least 1.
func (p Pager) Pages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// WithTotal returns a copy with Total set, as known once the page is fetched.
func (p Pager) WithTotal(total int) Pager {
	return New(p.Page, p.Limit, total)
}

// Range returns the 1-based index of the first and last item shown.
func (p Pager) Range() (first, last int) {
	if p.Total == 0 {
		return 0, 0
	}
	first = p.Offset() + 1
	last = p.Offset() + p.Limit
	if last > p.Total {
		last = p.Total
	}
	if first > last {
		first = last
	}
	return first, last
}
