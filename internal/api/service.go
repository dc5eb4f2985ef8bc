package api

import (
	"context"
	"strconv"

	"github.com/mirelwood/blades/internal/feed"
	"github.com/mirelwood/blades/internal/sse"
	"github.com/mirelwood/blades/internal/state"
	"github.com/mirelwood/blades/internal/stories"
)

// Service coordinates the feed manager, stories service, and state store
// for the API layer.
type Service struct {
	feed        *feed.Manager
	stories     *stories.Service
	store       state.Store
	broker      *sse.Broker
	categories  []string
	perCategory int
}

// NewService creates the API service. categories are the configured
// category lists; perCategory bounds each list.
func NewService(fm *feed.Manager, st *stories.Service, store state.Store, broker *sse.Broker, categories []string, perCategory int) *Service {
	if perCategory < 1 {
		perCategory = feed.DefaultPerCategory
	}
	return &Service{
		feed:        fm,
		stories:     st,
		store:       store,
		broker:      broker,
		categories:  categories,
		perCategory: perCategory,
	}
}

// PageSize returns the persisted archive page size, or the default.
func (s *Service) PageSize() int {
	if raw, ok := s.store.Get(state.PageSizeKey); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return feed.DefaultPageSize
}

// SetPageSize persists the archive page size.
func (s *Service) SetPageSize(n int) error {
	return s.store.Set(state.PageSizeKey, strconv.Itoa(n))
}

// ArchiveView computes the paged archive view: stale cache entries outside
// the new window are trimmed, the window is prefetched, and the resulting
// slice is returned with pager data.
func (s *Service) ArchiveView(ctx context.Context, p feed.ViewParams) (feed.View, error) {
	if p.PageSize < 1 {
		p.PageSize = s.PageSize()
	}
	s.feed.TrimOutsideWindow(p)
	if err := s.feed.PrefetchWindow(ctx, p); err != nil {
		return feed.View{}, err
	}
	return s.feed.View(p), nil
}

// CategoryLists returns the configured category lists (top N per category).
func (s *Service) CategoryLists() map[string][]feed.ItemView {
	return s.feed.CategoryLists(s.categories, s.perCategory)
}

// Counts returns unread totals.
func (s *Service) Counts() feed.Counts {
	return s.feed.UnreadCounts(s.categories)
}

// Expand lazily loads an item's content, marks it read and expanded, and
// returns the rendered HTML.
func (s *Service) Expand(ctx context.Context, key string) (string, error) {
	html, err := s.feed.LoadContent(ctx, key)
	if err != nil {
		return "", err
	}
	s.feed.SetExpanded(key, true)
	return html, nil
}

// Collapse clears an item's expanded flag. It reports whether the item
// exists.
func (s *Service) Collapse(key string) bool {
	return s.feed.SetExpanded(key, false)
}

// Refresh re-hydrates the feed and stories collections and notifies SSE
// subscribers.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.feed.Hydrate(ctx); err != nil {
		return err
	}
	if s.broker != nil {
		s.broker.PublishRefresh("feed", s.feed.Len())
	}
	if s.stories != nil {
		if err := s.stories.Hydrate(ctx); err != nil {
			return err
		}
		if s.broker != nil {
			s.broker.PublishRefresh("stories", len(s.stories.List()))
		}
	}
	return nil
}

// Feed exposes the feed manager for mark-read operations.
func (s *Service) Feed() *feed.Manager { return s.feed }

// Stories exposes the stories service.
func (s *Service) Stories() *stories.Service { return s.stories }
