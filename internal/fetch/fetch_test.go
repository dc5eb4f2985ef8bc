package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTTPFetchBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.Write([]byte("hello"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	h := NewHTTP(srv.Client())
	data, err := h.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("body = %q", data)
	}
}

func TestHTTPFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	h := NewHTTP(srv.Client())
	_, err := h.Fetch(context.Background(), srv.URL+"/missing")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Status != 404 {
		t.Errorf("status = %d, want 404", se.Status)
	}
}

func TestHTTPFetchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHTTP(srv.Client())
	if _, err := h.Fetch(ctx, srv.URL+"/x"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFileFetchByPath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pages", "socials", "entries")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.md"), []byte("# local"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	// The path component addresses the file regardless of host.
	data, err := f.Fetch(context.Background(), "http://localhost:8080/pages/socials/entries/a.md")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "# local" {
		t.Errorf("body = %q", data)
	}

	if _, err := f.Fetch(context.Background(), "http://localhost:8080/pages/missing.md"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileFetchConfinesToRoot(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	// Dot-dot segments collapse against the root instead of escaping it.
	for _, p := range []string{"../../etc/passwd", "/x/../../secret", "a/../../../b.md"} {
		abs, err := f.safePath(p)
		if err != nil {
			continue
		}
		rel, relErr := filepath.Rel(dir, abs)
		if relErr != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			t.Errorf("safePath(%q) escaped root: %s", p, abs)
		}
	}
}

func TestNewFileRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(file); err == nil {
		t.Error("expected error for non-directory root")
	}
	if _, err := NewFile(filepath.Join(dir, "absent")); err == nil {
		t.Error("expected error for missing root")
	}
}
