// Package stories implements the story reader's data side: the stories
// index, chapter retrieval and rendering, and per-story resume progress
// (last chapter plus scroll position) persisted in the state store.
package stories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mirelwood/blades/internal/apperr"
	"github.com/mirelwood/blades/internal/fetch"
	"github.com/mirelwood/blades/internal/markdown"
	"github.com/mirelwood/blades/internal/resolver"
	"github.com/mirelwood/blades/internal/state"
)

const progressPrefix = "storyProgress:"

// Chapter is one story chapter. The index allows either a bare file path or
// an object with a title.
type Chapter struct {
	Title string `json:"title"`
	File  string `json:"file"`
}

// UnmarshalJSON accepts both the string and object chapter forms.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	var file string
	if err := json.Unmarshal(data, &file); err == nil {
		c.File = file
		c.Title = ""
		return nil
	}
	type chapterObj Chapter
	var obj chapterObj
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = Chapter(obj)
	return nil
}

// Story is one entry of the stories index.
type Story struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

// Progress is the reader's resume point within a story. ScrollRatio is the
// scroll position within the chapter, in [0, 1].
type Progress struct {
	ChapterIndex int     `json:"chapterIndex"`
	ScrollRatio  float64 `json:"scrollRatio"`
}

// Service owns the stories collection and its reading progress.
type Service struct {
	indexURL string
	fetcher  fetch.Fetcher
	res      *resolver.Resolver
	store    state.Store
	logger   *slog.Logger

	mu      sync.RWMutex
	stories []Story
}

// NewService creates a stories service hydrating from indexURL.
func NewService(indexURL string, fetcher fetch.Fetcher, res *resolver.Resolver, store state.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{indexURL: indexURL, fetcher: fetcher, res: res, store: store, logger: logger}
}

// Hydrate fetches and parses the stories index, replacing the collection.
// Chapter titles default to "Chapter N" when the index omits them.
func (s *Service) Hydrate(ctx context.Context) error {
	data, err := s.fetcher.Fetch(ctx, s.indexURL)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) {
			return &apperr.IndexFetchError{URL: s.indexURL, Status: se.Status}
		}
		return &apperr.IndexFetchError{URL: s.indexURL, Err: err}
	}
	var stories []Story
	if err := json.Unmarshal(data, &stories); err != nil {
		return &apperr.IndexFetchError{URL: s.indexURL, Err: fmt.Errorf("parse stories index: %w", err)}
	}
	for i := range stories {
		for j := range stories[i].Chapters {
			if stories[i].Chapters[j].Title == "" {
				stories[i].Chapters[j].Title = fmt.Sprintf("Chapter %d", j+1)
			}
		}
	}

	s.mu.Lock()
	s.stories = stories
	s.mu.Unlock()

	s.logger.Info("stories: hydrated", slog.Int("stories", len(stories)))
	return nil
}

// List returns the hydrated stories.
func (s *Service) List() []Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Story, len(s.stories))
	copy(out, s.stories)
	return out
}

// Get returns the story with the given slug.
func (s *Service) Get(slug string) (Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stories {
		if st.Slug == slug {
			return st, nil
		}
	}
	return Story{}, apperr.ErrNotFound
}

// ChapterHTML fetches and renders one chapter through the resolver.
func (s *Service) ChapterHTML(ctx context.Context, slug string, index int) (string, error) {
	st, err := s.Get(slug)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(st.Chapters) {
		return "", apperr.ErrNotFound
	}
	text, err := s.res.Resolve(ctx, st.Chapters[index].File)
	if err != nil {
		return "", err
	}
	return markdown.Render(text), nil
}

// GetProgress returns the saved resume point for a story. The legacy value
// format was a bare chapter number; it is still accepted on read.
func (s *Service) GetProgress(slug string) Progress {
	raw, ok := s.store.Get(progressPrefix + slug)
	if !ok {
		return Progress{}
	}
	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err == nil {
		return clampProgress(p)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return Progress{ChapterIndex: n}
	}
	return Progress{}
}

// SetProgress persists the resume point, clamped to valid bounds. Failures
// are swallowed: progress tracking is best-effort.
func (s *Service) SetProgress(slug string, p Progress) {
	p = clampProgress(p)
	if st, err := s.Get(slug); err == nil && len(st.Chapters) > 0 && p.ChapterIndex >= len(st.Chapters) {
		p.ChapterIndex = len(st.Chapters) - 1
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.store.Set(progressPrefix+slug, string(raw)); err != nil {
		s.logger.Warn("stories: save progress failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
	}
}

func clampProgress(p Progress) Progress {
	if p.ChapterIndex < 0 {
		p.ChapterIndex = 0
	}
	if p.ScrollRatio < 0 {
		p.ScrollRatio = 0
	}
	if p.ScrollRatio > 1 {
		p.ScrollRatio = 1
	}
	return p
}
