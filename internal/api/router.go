package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Feed.
	r.Get("/feed", h.GetFeed)
	r.Get("/feed/lists", h.GetLists)
	r.Get("/feed/counts", h.GetCounts)
	r.Post("/feed/read", h.MarkRead)
	r.Post("/feed/items/{key}/expand", h.ExpandItem)
	r.Post("/feed/items/{key}/collapse", h.CollapseItem)
	r.Put("/feed/page-size", h.SetPageSize)
	r.Post("/feed/refresh", h.Refresh)

	// Stories.
	r.Get("/stories", h.ListStories)
	r.Get("/stories/{slug}", h.GetStory)
	r.Get("/stories/{slug}/chapters/{n}", h.GetChapter)
	r.Get("/stories/{slug}/progress", h.GetProgress)
	r.Put("/stories/{slug}/progress", h.PutProgress)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
