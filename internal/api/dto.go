package api

import (
	"github.com/mirelwood/blades/internal/feed"
	"github.com/mirelwood/blades/internal/stories"
)

// Mark-read scopes.
const (
	ScopeAll      = "all"
	ScopeCategory = "category"
	ScopeItems    = "items"
	ScopeVisible  = "visible"
)

// MarkReadRequest is the body for POST /feed/read.
type MarkReadRequest struct {
	Scope    string   `json:"scope"`
	Category string   `json:"category,omitempty"`
	Keys     []string `json:"keys,omitempty"`

	// View parameters qualifying the "visible" scope.
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

// PageSizeRequest is the body for PUT /feed/page-size.
type PageSizeRequest struct {
	PageSize int `json:"page_size"`
}

// ExpandResponse is returned when an item is expanded.
type ExpandResponse struct {
	Key  string `json:"key"`
	HTML string `json:"html"`
}

// ListsResponse wraps the category lists.
type ListsResponse struct {
	Lists map[string][]feed.ItemView `json:"lists"`
}

// StoriesResponse wraps the stories index.
type StoriesResponse struct {
	Stories []stories.Story `json:"stories"`
}

// ChapterResponse is one rendered story chapter.
type ChapterResponse struct {
	Slug    string `json:"slug"`
	Chapter int    `json:"chapter"`
	Title   string `json:"title"`
	HTML    string `json:"html"`
}
