package domain

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// LeadFilter selects leads for the paginated list.
type LeadFilter struct {
	Archived    bool
	Status      *LeadStatus
	Search      string
	DormantOnly bool
	DormantDays int
	Page        int
	PageSize    int
	// Now anchors the dormant cutoff.
	Now time.Time
}

// Normalize clamps paging to page >= 1 and 1 <= pageSize <= MaxPageSize.
func (f LeadFilter) Normalize() LeadFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize == 0:
		f.PageSize = DefaultPageSize
	case f.PageSize < 1:
		f.PageSize = 1
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.DormantDays < 0 {
		f.DormantDays = 0
	}
	return f
}

func (f LeadFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// Matches evaluates the filter against one lead.
func (f LeadFilter) Matches(l Lead) bool {
	if l.Archived != f.Archived {
		return false
	}
	if f.Status != nil && l.Status != *f.Status {
		return false
	}
	if f.Search != "" && !matchesSearch(l, f.Search) {
		return false
	}
	if f.DormantOnly && !l.IsDormant(f.Now, f.DormantDays) {
		return false
	}
	return true
}

// SearchFields are the lead fields covered by the free-text search.
var SearchFields = []string{"first_name", "last_name", "name", "phone", "lead_source", "lead_code"}

func matchesSearch(l Lead, term string) bool {
	needle := strings.ToLower(term)
	for _, v := range []*string{l.FirstName, l.LastName, l.Name, &l.Phone, &l.LeadSource, l.LeadCode} {
		if v != nil && strings.Contains(strings.ToLower(*v), needle) {
			return true
		}
	}
	return false
}

// LeadPage is one page of a lead listing.
type LeadPage struct {
	Items    []Lead
	Page     int
	PageSize int
	Total    int
}
