package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mirelwood/blades/internal/apperr"
	"github.com/mirelwood/blades/internal/feed"
	"github.com/mirelwood/blades/internal/stories"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// viewParams reads the archive view inputs from the query string. These are
// externally owned UI state; the core treats them as plain inputs.
func viewParams(r *http.Request) feed.ViewParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	return feed.ViewParams{
		Page:       page,
		PageSize:   pageSize,
		Category:   q.Get("category"),
		Sort:       q.Get("sort"),
		UnreadOnly: q.Get("unread") == "true" || q.Get("unread") == "1",
	}
}

// GetFeed handles GET /api/feed: the paged archive view.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ArchiveView(r.Context(), viewParams(r))
	if err != nil {
		slog.Error("archive view failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("failed to load archive"))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetLists handles GET /api/feed/lists: the per-category top-N lists.
func (h *Handler) GetLists(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ListsResponse{Lists: h.svc.CategoryLists()})
}

// GetCounts handles GET /api/feed/counts.
func (h *Handler) GetCounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Counts())
}

// MarkRead handles POST /api/feed/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	fm := h.svc.Feed()
	switch req.Scope {
	case ScopeAll:
		fm.MarkAllRead()
	case ScopeCategory:
		if req.Category == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("category is required"))
			return
		}
		fm.MarkCategoryRead(req.Category)
	case ScopeItems:
		if len(req.Keys) == 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("keys are required"))
			return
		}
		for _, k := range req.Keys {
			fm.MarkRead(k, true)
		}
	case ScopeVisible:
		fm.MarkWindowRead(feed.ViewParams{
			Page:     req.Page,
			PageSize: req.PageSize,
			Category: req.Filter,
			Sort:     req.Sort,
		})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown scope"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Counts())
}

// ExpandItem handles POST /api/feed/items/{key}/expand: lazy content load
// plus read/expanded flagging.
func (h *Handler) ExpandItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	html, err := h.svc.Expand(r.Context(), key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("expand failed", slog.String("key", key), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ExpandResponse{Key: key, HTML: html})
}

// CollapseItem handles POST /api/feed/items/{key}/collapse.
func (h *Handler) CollapseItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.svc.Collapse(key) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

// SetPageSize handles PUT /api/feed/page-size.
func (h *Handler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	var req PageSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		writeJSON(w, http.StatusBadRequest, errorBody("page_size must be in [1, 100]"))
		return
	}
	if err := h.svc.SetPageSize(req.PageSize); err != nil {
		slog.Error("persist page size failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageSizeRequest{PageSize: req.PageSize})
}

// Refresh handles POST /api/feed/refresh: re-hydrate from the indexes.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(r.Context()); err != nil {
		slog.Error("refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("failed to load"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"items": h.svc.Feed().Len()})
}

// ListStories handles GET /api/stories.
func (h *Handler) ListStories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StoriesResponse{Stories: h.svc.Stories().List()})
}

// GetStory handles GET /api/stories/{slug}.
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	st, err := h.svc.Stories().Get(slug)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetChapter handles GET /api/stories/{slug}/chapters/{n}.
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("chapter must be a number"))
		return
	}
	html, err := h.svc.Stories().ChapterHTML(r.Context(), slug, n)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("chapter load failed",
			slog.String("slug", slug),
			slog.Int("chapter", n),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("chapter unavailable"))
		return
	}
	st, _ := h.svc.Stories().Get(slug)
	title := ""
	if n >= 0 && n < len(st.Chapters) {
		title = st.Chapters[n].Title
	}
	writeJSON(w, http.StatusOK, ChapterResponse{Slug: slug, Chapter: n, Title: title, HTML: html})
}

// GetProgress handles GET /api/stories/{slug}/progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, err := h.svc.Stories().Get(slug); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Stories().GetProgress(slug))
}

// PutProgress handles PUT /api/stories/{slug}/progress.
func (h *Handler) PutProgress(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, err := h.svc.Stories().Get(slug); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	var p stories.Progress
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.svc.Stories().SetProgress(slug, p)
	writeJSON(w, http.StatusOK, h.svc.Stories().GetProgress(slug))
}
