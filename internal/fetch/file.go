package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// File serves fetches from a local site directory. Candidate URLs are mapped
// to files by their path component, so the same resolver candidates work for
// both hosted and on-disk sites.
type File struct {
	root string // absolute path to the site directory
}

// NewFile creates a file fetcher rooted at dir. The directory must exist.
func NewFile(dir string) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fetch: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fetch: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fetch: root is not a directory: %s", abs)
	}
	return &File{root: abs}, nil
}

// safePath resolves a URL path against the site root and rejects any result
// that escapes it (directory traversal).
func (f *File) safePath(p string) (string, error) {
	cleaned := filepath.Clean("/" + p)
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("fetch: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("fetch: path escapes site root: %s", p)
	}
	return abs, nil
}

// Fetch reads the file addressed by the candidate's path component.
func (f *File) Fetch(ctx context.Context, candidate string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse candidate %q: %w", candidate, err)
	}
	abs, err := f.safePath(u.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Path, err)
	}
	return data, nil
}
