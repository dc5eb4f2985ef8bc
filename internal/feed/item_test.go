package feed

import (
	"testing"
)

func TestParseIndexNormalizesRecords(t *testing.T) {
	data := []byte(`[
		{"id": 7, "category": "thought", "date": "2024-01-01"},
		{"id": "abc", "md": "entries/post.md"},
		{"title": "bare"}
	]`)
	items, err := parseIndex(data)
	if err != nil {
		t.Fatalf("parseIndex: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "7" {
		t.Errorf("numeric id coerced to %q, want \"7\"", items[0].ID)
	}
	if items[1].ID != "abc" {
		t.Errorf("string id = %q, want \"abc\"", items[1].ID)
	}
	// Missing fields default to empty strings.
	if items[2].ID != "" || items[2].MD != "" || items[2].Date != "" || items[2].Category != "" {
		t.Error("missing fields should normalize to empty strings")
	}
}

func TestParseIndexRejectsNonArray(t *testing.T) {
	if _, err := parseIndex([]byte(`{"id": 1}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}

func TestKeyPrefersID(t *testing.T) {
	it := &Item{ID: "42", MD: "entries/9.md", Date: "2024-01-01"}
	if got := it.Key(); got != "42" {
		t.Errorf("Key = %q, want \"42\"", got)
	}
}

func TestKeyFromMarkdownBasename(t *testing.T) {
	it := &Item{MD: "pages/socials/entries/hello world.md"}
	if got := it.Key(); got != "md-hello_world_md" {
		t.Errorf("Key = %q, want \"md-hello_world_md\"", got)
	}
}

func TestKeyFromDate(t *testing.T) {
	it := &Item{Date: "2024-06-01T10:00:00Z"}
	if got := it.Key(); got != "item-2024_06_01T10_00_00Z" {
		t.Errorf("Key = %q", got)
	}
}

func TestKeyContentHashFallbackIsStable(t *testing.T) {
	a := &Item{Category: "thought", Title: "same", Content: "body"}
	b := &Item{Category: "thought", Title: "same", Content: "body"}
	if a.Key() != b.Key() {
		t.Error("identical records must derive identical fallback keys")
	}
	c := &Item{Category: "thought", Title: "different", Content: "body"}
	if a.Key() == c.Key() {
		t.Error("different records should derive different fallback keys")
	}
}
