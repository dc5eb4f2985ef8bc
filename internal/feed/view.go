package feed

import (
	"slices"
)

// Sort modes for the archive view.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortAlpha  = "alpha"
)

// Default paging configuration, matching the site's archive page.
const (
	DefaultPageSize      = 10
	DefaultPrefetchPages = 2
	DefaultPerCategory   = 3
)

// ViewParams are the externally owned filter/sort/page inputs to a view.
type ViewParams struct {
	Page          int
	PageSize      int
	PrefetchPages int
	Category      string // "" or "all" disables the filter
	Sort          string
	UnreadOnly    bool
}

// normalize fills unset paging fields with defaults.
func (p ViewParams) normalize() ViewParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PrefetchPages < 1 {
		p.PrefetchPages = DefaultPrefetchPages
	}
	if p.Sort == "" {
		p.Sort = SortNewest
	}
	return p
}

// readChecker answers read-state queries during view computation.
type readChecker interface {
	Read(id string) bool
}

// filterSort applies the category filter, unread filter, and sort mode to a
// master snapshot, returning a fresh slice.
func filterSort(master []*Item, p ViewParams, flags readChecker) []*Item {
	items := make([]*Item, 0, len(master))
	for _, it := range master {
		if p.Category != "" && p.Category != "all" {
			if it.Category == "" || !CategoryMatches(it.Category, p.Category) {
				continue
			}
		}
		if p.UnreadOnly && flags.Read(it.Key()) {
			continue
		}
		items = append(items, it)
	}

	switch p.Sort {
	case SortOldest:
		slices.SortStableFunc(items, compareOldest)
	case SortAlpha:
		slices.SortStableFunc(items, compareAlpha)
	default:
		slices.SortStableFunc(items, Compare)
	}
	return items
}

// window bounds the prefetch slice for the requested page: pageSize *
// prefetchPages items starting at the page offset. The page itself is
// clamped into [1, totalPages] first.
func window(filtered []*Item, p ViewParams) (items []*Item, page, totalPages int) {
	totalPages = (len(filtered) + p.PageSize - 1) / p.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page = p.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * p.PageSize
	end := start + p.PageSize*p.PrefetchPages
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], page, totalPages
}
