package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/mirelwood/blades/internal/apperr"
	"github.com/mirelwood/blades/internal/fetch"
	"github.com/mirelwood/blades/internal/resolver"
	"github.com/mirelwood/blades/internal/state"
	"github.com/mirelwood/blades/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager wires a Manager against a fake site server.
func newTestManager(t *testing.T, files map[string]string) (*Manager, *testutil.RequestLog) {
	t.Helper()
	srv, log := testutil.SiteServer(t, files)
	fetcher := fetch.NewHTTP(srv.Client())
	base := srv.URL + "/pages/socials/"
	res, err := resolver.New(fetcher, base+"data.json", base)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	flags := state.NewFlags(state.NewMemory())
	m := NewManager(base+"data.json", fetcher, res, flags, discardLogger())
	return m, log
}

func TestHydrateSortsNewestFirst(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "date": "2024-01-01", "category": "thought"},
			{"id": 2, "date": "2024-06-01", "category": "update"}
		]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	view := m.View(ViewParams{})
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	if view.Items[0].Key != "2" || view.Items[1].Key != "1" {
		t.Errorf("order = %s, %s; want 2, 1", view.Items[0].Key, view.Items[1].Key)
	}
}

func TestHydrateIndexFetchError(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{})
	err := m.Hydrate(context.Background())
	if err == nil {
		t.Fatal("expected error for missing index")
	}
	var ife *apperr.IndexFetchError
	if !errors.As(err, &ife) {
		t.Fatalf("expected IndexFetchError, got %T", err)
	}
	if ife.Status != 404 {
		t.Errorf("status = %d, want 404", ife.Status)
	}
}

func TestHydrateKeepsMasterOnFailure(t *testing.T) {
	files := map[string]string{
		"/pages/socials/data.json": `[{"id": 1, "date": "2024-01-01"}]`,
	}
	m, _ := newTestManager(t, files)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	delete(files, "/pages/socials/data.json")
	if err := m.Hydrate(context.Background()); err == nil {
		t.Fatal("expected hydrate failure")
	}
	if m.Len() != 1 {
		t.Error("failed hydrate must not clear the previous master")
	}
}

func TestPrefetchWindowIsIdempotent(t *testing.T) {
	m, log := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "md": "entries/0001.md", "date": "2024-01-01"},
			{"id": 2, "md": "entries/0002.md", "date": "2024-02-01"}
		]`,
		"/pages/socials/entries/0001.md": "# one",
		"/pages/socials/entries/0002.md": "# two",
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	p := ViewParams{Page: 1, PageSize: 10, PrefetchPages: 2}
	if err := m.PrefetchWindow(context.Background(), p); err != nil {
		t.Fatalf("PrefetchWindow: %v", err)
	}
	if err := m.PrefetchWindow(context.Background(), p); err != nil {
		t.Fatalf("PrefetchWindow (second): %v", err)
	}
	if n := log.Count("/pages/socials/entries/0001.md"); n != 1 {
		t.Errorf("entry 1 fetched %d times, want 1", n)
	}
	if n := log.Count("/pages/socials/entries/0002.md"); n != 1 {
		t.Errorf("entry 2 fetched %d times, want 1", n)
	}

	view := m.View(p)
	for _, it := range view.Items {
		if !it.Loaded {
			t.Errorf("item %s not loaded after prefetch", it.Key)
		}
		if !strings.Contains(it.HTML, "<h1>") {
			t.Errorf("item %s missing rendered heading: %q", it.Key, it.HTML)
		}
	}
}

func TestPrefetchFailureLeavesNullSentinel(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "md": "entries/missing.md", "date": "2024-01-01"},
			{"id": 2, "content": "inline *body*", "date": "2024-02-01"}
		]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	p := ViewParams{Page: 1, PageSize: 10}
	if err := m.PrefetchWindow(context.Background(), p); err != nil {
		t.Fatalf("a failed item must not fail the batch: %v", err)
	}

	view := m.View(p)
	byKey := map[string]ItemView{}
	for _, it := range view.Items {
		byKey[it.Key] = it
	}
	if byKey["1"].Loaded {
		t.Error("failed fetch should leave the item unloaded")
	}
	if !byKey["2"].Loaded || !strings.Contains(byKey["2"].HTML, "<em>body</em>") {
		t.Errorf("inline content should render in-batch, got %q", byKey["2"].HTML)
	}

	// A later lazy access retries and degrades to the placeholder.
	html, err := m.LoadContent(context.Background(), "1")
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if !strings.Contains(html, "Content unavailable") {
		t.Errorf("expected unavailable placeholder, got %q", html)
	}
}

func TestTrimOutsideWindow(t *testing.T) {
	files := map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "md": "entries/1.md", "date": "2024-01-01"},
			{"id": 2, "md": "entries/2.md", "date": "2024-02-01"},
			{"id": 3, "md": "entries/3.md", "date": "2024-03-01"},
			{"id": 4, "md": "entries/4.md", "date": "2024-04-01"}
		]`,
		"/pages/socials/entries/1.md": "one",
		"/pages/socials/entries/2.md": "two",
		"/pages/socials/entries/3.md": "three",
		"/pages/socials/entries/4.md": "four",
	}
	m, _ := newTestManager(t, files)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	// Load everything: window covers all 4 items.
	all := ViewParams{Page: 1, PageSize: 4, PrefetchPages: 1}
	if err := m.PrefetchWindow(context.Background(), all); err != nil {
		t.Fatalf("PrefetchWindow: %v", err)
	}

	// Shrink the window to page 1 of 2: newest items 4 and 3 stay cached,
	// 2 and 1 are evicted.
	narrow := ViewParams{Page: 1, PageSize: 2, PrefetchPages: 1}
	m.TrimOutsideWindow(narrow)

	view := m.View(all)
	for _, it := range view.Items {
		switch it.Key {
		case "4", "3":
			if !it.Loaded {
				t.Errorf("item %s inside window lost its cache", it.Key)
			}
		case "2", "1":
			if it.Loaded {
				t.Errorf("item %s outside window kept its cache", it.Key)
			}
		}
	}
}

// gateFetcher blocks entry fetches until released, to hold a prefetch batch
// in flight while the test changes view state.
type gateFetcher struct {
	inner   fetch.Fetcher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.Contains(url, "/entries/") {
		g.once.Do(func() { close(g.started) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.inner.Fetch(ctx, url)
}

func TestStalePrefetchBatchIsDiscarded(t *testing.T) {
	srv, _ := testutil.SiteServer(t, map[string]string{
		"/pages/socials/data.json": `[{"id": 1, "md": "entries/1.md", "date": "2024-01-01"}]`,
		"/pages/socials/entries/1.md": "one",
	})
	gate := &gateFetcher{
		inner:   fetch.NewHTTP(srv.Client()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	base := srv.URL + "/pages/socials/"
	res, err := resolver.New(gate, base+"data.json", base)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	m := NewManager(base+"data.json", gate, res, state.NewFlags(state.NewMemory()), discardLogger())
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	p := ViewParams{Page: 1, PageSize: 10}
	done := make(chan error, 1)
	go func() {
		done <- m.PrefetchWindow(context.Background(), p)
	}()

	<-gate.started
	// View state changes while the batch is in flight.
	m.TrimOutsideWindow(p)
	close(gate.release)

	if err := <-done; err != nil {
		t.Fatalf("PrefetchWindow: %v", err)
	}
	view := m.View(p)
	if view.Items[0].Loaded {
		t.Error("stale batch results must be discarded after a generation bump")
	}
}

func TestLoadContentPlaceholders(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[{"id": 1, "date": "2024-01-01"}]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	html, err := m.LoadContent(context.Background(), "1")
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if !strings.Contains(html, "No content") {
		t.Errorf("expected no-content placeholder, got %q", html)
	}

	if _, err := m.LoadContent(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown key: err = %v, want ErrNotFound", err)
	}
}

func TestMarkReadAndCounts(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "category": "thought", "date": "2024-01-01"},
			{"id": 2, "category": "thoughts", "date": "2024-02-01"},
			{"id": 3, "category": "update", "date": "2024-03-01"},
			{"id": 4, "category": "bookmark", "date": "2024-04-01"}
		]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	cats := []string{"thought", "bookmark", "update"}

	counts := m.UnreadCounts(cats)
	if counts.Total != 4 || counts.ByCategory["thought"] != 2 {
		t.Errorf("counts = %+v", counts)
	}

	m.MarkCategoryRead("thought")
	counts = m.UnreadCounts(cats)
	if counts.Total != 2 || counts.ByCategory["thought"] != 0 {
		t.Errorf("after category mark: %+v", counts)
	}

	m.MarkAllRead()
	counts = m.UnreadCounts(cats)
	if counts.Total != 0 {
		t.Errorf("after mark all: total = %d", counts.Total)
	}
}

func TestMarkWindowRead(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "date": "2024-01-01"},
			{"id": 2, "date": "2024-02-01"},
			{"id": 3, "date": "2024-03-01"}
		]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	// Window = page 1 of size 2, single page prefetch: items 3 and 2.
	m.MarkWindowRead(ViewParams{Page: 1, PageSize: 2, PrefetchPages: 1})
	counts := m.UnreadCounts(nil)
	if counts.Total != 1 {
		t.Errorf("total unread = %d, want 1 (only the off-window item)", counts.Total)
	}
	view := m.View(ViewParams{PageSize: 10})
	if !view.Items[0].Read || !view.Items[1].Read || view.Items[2].Read {
		t.Error("read flags do not match the marked window")
	}
}

func TestSetExpandedMarksRead(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[{"id": 1, "content": "hi", "date": "2024-01-01"}]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !m.SetExpanded("1", true) {
		t.Fatal("SetExpanded reported missing item")
	}
	view := m.View(ViewParams{})
	if !view.Items[0].Expanded || !view.Items[0].Read {
		t.Error("expanding should set both expanded and read flags")
	}
	if m.SetExpanded("ghost", true) {
		t.Error("unknown key should report false")
	}
}

func TestCategoryLists(t *testing.T) {
	m, _ := newTestManager(t, map[string]string{
		"/pages/socials/data.json": `[
			{"id": 1, "category": "thought", "date": "2024-01-01"},
			{"id": 2, "category": "thought", "date": "2024-02-01"},
			{"id": 3, "category": "thoughts", "date": "2024-03-01"},
			{"id": 4, "category": "thought", "date": "2024-04-01"},
			{"id": 5, "category": "update", "date": "2024-05-01"}
		]`,
	})
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	lists := m.CategoryLists([]string{"thought", "update"}, 3)
	if len(lists["thought"]) != 3 {
		t.Fatalf("thought list = %d items, want 3", len(lists["thought"]))
	}
	if lists["thought"][0].Key != "4" {
		t.Errorf("thought list should lead with the newest item, got %s", lists["thought"][0].Key)
	}
	if len(lists["update"]) != 1 {
		t.Errorf("update list = %d items, want 1", len(lists["update"]))
	}
}
