// Package feed implements the blades feed core: the master collection of
// posts hydrated from the site's JSON index, canonical ordering, filtered
// and paged views, and the prefetch window cache of rendered HTML.
package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
)

// Item is one feed entry. Every field defaults to the empty string when the
// index record omits it; nothing downstream sees an absent value.
type Item struct {
	ID       string `json:"id"`
	MD       string `json:"md"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Title    string `json:"title"`

	// html is the cached sanitized render. nil means not yet loaded; it is
	// set at most once per load and cleared only by window trimming. Guarded
	// by the owning Manager's lock.
	html *string
}

// rawItem matches the wire format of the index. id may arrive as a JSON
// number or string.
type rawItem struct {
	ID       any    `json:"id"`
	MD       string `json:"md"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Title    string `json:"title"`
}

// parseIndex decodes the raw index payload into normalized items.
func parseIndex(data []byte) ([]*Item, error) {
	var raw []rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("feed: parse index: %w", err)
	}
	items := make([]*Item, len(raw))
	for i, r := range raw {
		items[i] = &Item{
			ID:       coerceID(r.ID),
			MD:       r.MD,
			Content:  r.Content,
			Date:     r.Date,
			Category: r.Category,
			Source:   r.Source,
			Title:    r.Title,
		}
	}
	return items, nil
}

// coerceID renders a wire id (string, number, or absent) as a string.
func coerceID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}

var nonWordRe = regexp.MustCompile(`[^0-9A-Za-z_]+`)

// Key returns the stable identity key used to correlate the item with its
// persisted flags and cache entry: the id when present, else the markdown
// basename, else the date, else a digest of the record's content. The
// digest replaces the random fallback the site's scripts used, so items
// lacking every identifying field still keep their state across hydrates.
func (it *Item) Key() string {
	if it.ID != "" {
		return it.ID
	}
	if it.MD != "" {
		return "md-" + nonWordRe.ReplaceAllString(path.Base(it.MD), "_")
	}
	if it.Date != "" {
		return "item-" + nonWordRe.ReplaceAllString(it.Date, "_")
	}
	h := sha256.Sum256([]byte(it.Category + "\x00" + it.Title + "\x00" + it.Source + "\x00" + it.Content))
	return "item-" + hex.EncodeToString(h[:])[:12]
}

// Loaded reports whether the item has a cached render.
func (it *Item) Loaded() bool { return it.html != nil }
