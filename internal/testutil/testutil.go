// Package testutil provides shared test helpers for state stores and fake
// site servers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/mirelwood/blades/internal/state"
)

// TestDB creates a temporary SQLite state database that is automatically
// cleaned up.
func TestDB(t *testing.T) *state.DB {
	t.Helper()
	f, err := os.CreateTemp("", "blades-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := state.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SiteServer starts an httptest server that serves the given path→body map
// and records every requested path in order.
func SiteServer(t *testing.T, files map[string]string) (*httptest.Server, *RequestLog) {
	t.Helper()
	log := &RequestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

// RequestLog records request paths for assertion. Safe for concurrent use:
// prefetch batches fetch in parallel.
type RequestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *RequestLog) add(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, p)
}

// Paths returns the recorded request paths in order.
func (l *RequestLog) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// Count returns how many requests targeted the given path.
func (l *RequestLog) Count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.paths {
		if p == path {
			n++
		}
	}
	return n
}
