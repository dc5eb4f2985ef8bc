package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mirelwood/blades/internal/apperr"
	"github.com/mirelwood/blades/internal/fetch"
	"github.com/mirelwood/blades/internal/markdown"
	"github.com/mirelwood/blades/internal/resolver"
	"github.com/mirelwood/blades/internal/state"
)

// Placeholder renders substituted when an item's body cannot be produced.
const (
	htmlNoContent   = "<p><em>No content</em></p>"
	htmlUnavailable = "<p><em>Content unavailable</em></p>"
)

// Manager owns the master collection. It hydrates items from the remote
// index, maintains the prefetch-window cache of rendered HTML, and answers
// filtered/sorted/paged views. All master access goes through the manager;
// consumers correlate items by identity key, never by reference.
type Manager struct {
	indexURL string
	fetcher  fetch.Fetcher
	res      *resolver.Resolver
	flags    *state.Flags
	logger   *slog.Logger

	mu     sync.RWMutex
	master []*Item

	// generation tags prefetch batches. Any view-state change bumps it;
	// a batch whose generation is no longer current discards its results
	// instead of repopulating a stale window.
	generation uint64
}

// NewManager creates a feed manager. The fetcher loads the index; the
// resolver locates markdown bodies.
func NewManager(indexURL string, fetcher fetch.Fetcher, res *resolver.Resolver, flags *state.Flags, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		indexURL: indexURL,
		fetcher:  fetcher,
		res:      res,
		flags:    flags,
		logger:   logger,
	}
}

// ItemView is the read-only projection of an item handed to presentation
// layers: wire fields plus cache and flag state.
type ItemView struct {
	Key      string `json:"key"`
	ID       string `json:"id,omitempty"`
	MD       string `json:"md,omitempty"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
	Title    string `json:"title,omitempty"`
	HTML     string `json:"html,omitempty"`
	Loaded   bool   `json:"loaded"`
	Read     bool   `json:"read"`
	Expanded bool   `json:"expanded"`
}

// View is a filtered/sorted/paged slice of the master collection.
type View struct {
	Items         []ItemView `json:"items"`
	Page          int        `json:"page"`
	TotalPages    int        `json:"total_pages"`
	PageSize      int        `json:"page_size"`
	TotalFiltered int        `json:"total_filtered"`
}

// Counts aggregates unread totals.
type Counts struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

// Hydrate fetches and parses the remote index, normalizes every record,
// sorts the collection with the canonical comparator, and replaces the
// master wholesale. On failure the previous master is kept and a
// *apperr.IndexFetchError is returned for the caller's error state.
func (m *Manager) Hydrate(ctx context.Context) error {
	data, err := m.fetcher.Fetch(ctx, m.indexURL)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) {
			return &apperr.IndexFetchError{URL: m.indexURL, Status: se.Status}
		}
		return &apperr.IndexFetchError{URL: m.indexURL, Err: err}
	}
	items, err := parseIndex(data)
	if err != nil {
		return &apperr.IndexFetchError{URL: m.indexURL, Err: err}
	}
	slices.SortStableFunc(items, Compare)

	m.mu.Lock()
	m.master = items
	m.generation++
	m.mu.Unlock()

	m.logger.Info("feed: hydrated", slog.Int("items", len(items)))
	return nil
}

// Len returns the number of items in the master collection.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.master)
}

// View computes the archive view for the given parameters: the prefetch
// window slice plus pager data. Cached HTML is included where present.
func (m *Manager) View(p ViewParams) View {
	p = p.normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := filterSort(m.master, p, m.flags)
	win, page, totalPages := window(filtered, p)

	views := make([]ItemView, len(win))
	for i, it := range win {
		views[i] = m.itemView(it)
	}
	return View{
		Items:         views,
		Page:          page,
		TotalPages:    totalPages,
		PageSize:      p.PageSize,
		TotalFiltered: len(filtered),
	}
}

// CategoryLists returns, for each named category, the top limit items in
// canonical order, independent of archive paging.
func (m *Manager) CategoryLists(categories []string, limit int) map[string][]ItemView {
	if limit < 1 {
		limit = DefaultPerCategory
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]ItemView, len(categories))
	for _, cat := range categories {
		var matched []*Item
		for _, it := range m.master {
			if CategoryMatches(it.Category, cat) {
				matched = append(matched, it)
			}
		}
		slices.SortStableFunc(matched, Compare)
		if len(matched) > limit {
			matched = matched[:limit]
		}
		views := make([]ItemView, len(matched))
		for i, it := range matched {
			views[i] = m.itemView(it)
		}
		out[cat] = views
	}
	return out
}

// itemView projects an item. Callers hold at least a read lock.
func (m *Manager) itemView(it *Item) ItemView {
	key := it.Key()
	v := ItemView{
		Key:      key,
		ID:       it.ID,
		MD:       it.MD,
		Date:     it.Date,
		Category: it.Category,
		Source:   it.Source,
		Title:    it.Title,
		Loaded:   it.html != nil,
		Read:     m.flags.Read(key),
		Expanded: m.flags.Expanded(key),
	}
	if it.html != nil {
		v.HTML = *it.html
	}
	return v
}

// prefetchTask is one item's pending load inside a batch.
type prefetchTask struct {
	item    *Item
	md      string
	content string
	result  *string
}

// PrefetchWindow eagerly loads rendered HTML for every unloaded item in the
// window defined by p. Markdown fetches run concurrently; a failed fetch
// leaves the item unloaded without failing the batch. Results are applied
// only if no view-state change happened while the batch was in flight.
func (m *Manager) PrefetchWindow(ctx context.Context, p ViewParams) error {
	p = p.normalize()

	m.mu.RLock()
	gen := m.generation
	filtered := filterSort(m.master, p, m.flags)
	win, _, _ := window(filtered, p)
	var tasks []*prefetchTask
	for _, it := range win {
		if it.html != nil {
			continue
		}
		tasks = append(tasks, &prefetchTask{item: it, md: it.MD, content: it.Content})
	}
	m.mu.RUnlock()

	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			switch {
			case t.content != "":
				html := markdown.Render(t.content)
				t.result = &html
			case t.md != "":
				text, err := m.res.Resolve(gctx, t.md)
				if err != nil {
					// Null sentinel: the item stays unloaded and a later
					// lazy access retries.
					m.logger.Debug("feed: prefetch failed",
						slog.String("md", t.md),
						slog.String("error", err.Error()))
					return nil
				}
				html := markdown.Render(text)
				t.result = &html
			default:
				html := htmlNoContent
				t.result = &html
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		m.logger.Debug("feed: discarding stale prefetch batch",
			slog.Uint64("batch_generation", gen),
			slog.Uint64("current_generation", m.generation))
		return nil
	}
	for _, t := range tasks {
		if t.result != nil && t.item.html == nil {
			t.item.html = t.result
		}
	}
	return nil
}

// TrimOutsideWindow clears the cached render of every master item whose
// identity key is outside the current window set. Called after any
// page/filter/sort change; it also invalidates in-flight prefetch batches.
func (m *Manager) TrimOutsideWindow(p ViewParams) {
	p = p.normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := filterSort(m.master, p, m.flags)
	win, _, _ := window(filtered, p)
	keep := make(map[string]struct{}, len(win))
	for _, it := range win {
		keep[it.Key()] = struct{}{}
	}
	trimmed := 0
	for _, it := range m.master {
		if _, ok := keep[it.Key()]; ok {
			continue
		}
		if it.html != nil {
			it.html = nil
			trimmed++
		}
	}
	m.generation++
	if trimmed > 0 {
		m.logger.Debug("feed: trimmed cache", slog.Int("items", trimmed))
	}
}

// LoadContent lazily loads and caches one item's rendered HTML, looking the
// item up by identity key. Resolution failures degrade to placeholder
// renders; only a missing item or a cancelled context is an error.
func (m *Manager) LoadContent(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	it := m.findLocked(key)
	if it == nil {
		m.mu.RUnlock()
		return "", apperr.ErrNotFound
	}
	if it.html != nil {
		html := *it.html
		m.mu.RUnlock()
		return html, nil
	}
	md, content := it.MD, it.Content
	m.mu.RUnlock()

	var html string
	switch {
	case content != "":
		html = markdown.Render(content)
	case md != "":
		text, err := m.res.Resolve(ctx, md)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			m.logger.Warn("feed: content unavailable",
				slog.String("key", key),
				slog.String("error", err.Error()))
			html = htmlUnavailable
		} else {
			html = markdown.Render(text)
		}
	default:
		html = htmlNoContent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-resolve by key: a hydrate may have replaced the collection while
	// the fetch was in flight.
	if cur := m.findLocked(key); cur != nil && cur.html == nil {
		cur.html = &html
	}
	return html, nil
}

// findLocked returns the master item with the given key. Callers hold a lock.
func (m *Manager) findLocked(key string) *Item {
	for _, it := range m.master {
		if it.Key() == key {
			return it
		}
	}
	return nil
}

// MarkRead sets the read flag for one item. It reports whether the item
// exists.
func (m *Manager) MarkRead(key string, val bool) bool {
	m.mu.RLock()
	it := m.findLocked(key)
	m.mu.RUnlock()
	if it == nil {
		return false
	}
	m.flags.SetRead(key, val)
	return true
}

// MarkAllRead flags every master item as read.
func (m *Manager) MarkAllRead() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.master {
		m.flags.SetRead(it.Key(), true)
	}
}

// MarkCategoryRead flags every item matching the category as read.
func (m *Manager) MarkCategoryRead(category string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.master {
		if CategoryMatches(it.Category, category) {
			m.flags.SetRead(it.Key(), true)
		}
	}
}

// MarkWindowRead flags every item in the current prefetch window as read,
// the "mark visible read" operation.
func (m *Manager) MarkWindowRead(p ViewParams) {
	p = p.normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	filtered := filterSort(m.master, p, m.flags)
	win, _, _ := window(filtered, p)
	for _, it := range win {
		m.flags.SetRead(it.Key(), true)
	}
}

// SetExpanded records the expanded flag for an item, marking it read when
// expanding. It reports whether the item exists.
func (m *Manager) SetExpanded(key string, val bool) bool {
	m.mu.RLock()
	it := m.findLocked(key)
	m.mu.RUnlock()
	if it == nil {
		return false
	}
	m.flags.SetExpanded(key, val)
	if val {
		m.flags.SetRead(key, true)
	}
	return true
}

// UnreadCounts computes the unread total plus per-category unread counts
// for the named categories (prefix-matched, case-insensitive).
func (m *Manager) UnreadCounts(categories []string) Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := Counts{ByCategory: make(map[string]int, len(categories))}
	for _, c := range categories {
		counts.ByCategory[c] = 0
	}
	for _, it := range m.master {
		if m.flags.Read(it.Key()) {
			continue
		}
		counts.Total++
		cat := strings.ToLower(it.Category)
		for _, c := range categories {
			if strings.HasPrefix(cat, strings.ToLower(c)) {
				counts.ByCategory[c]++
				break
			}
		}
	}
	return counts
}
