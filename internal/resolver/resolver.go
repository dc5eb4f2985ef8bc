// Package resolver locates markdown bodies referenced by feed items.
//
// References in the feed index are frequently sloppy: some are absolute,
// some are relative to the page that embedded them, some name only a file
// inside the entries directory. The resolver builds an ordered candidate
// list for a reference and fetches the first one that succeeds.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/mirelwood/blades/internal/apperr"
	"github.com/mirelwood/blades/internal/fetch"
)

// Resolver resolves relative markdown references into fetchable URLs.
type Resolver struct {
	fetcher fetch.Fetcher

	// pageURL is the location the feed index was loaded from; relative
	// references resolve against it first, mirroring how a browser would
	// resolve them against the embedding document.
	pageURL    *url.URL
	baseURL    *url.URL
	entriesURL *url.URL
}

// New creates a Resolver. pageURL is the index location, baseURL the site's
// feed base directory. The entries directory is derived as "entries/" under
// the base.
func New(fetcher fetch.Fetcher, pageURL, baseURL string) (*Resolver, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("resolver: parse page url: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("resolver: parse base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	entries, err := base.Parse("entries/")
	if err != nil {
		return nil, fmt.Errorf("resolver: derive entries url: %w", err)
	}
	return &Resolver{fetcher: fetcher, pageURL: page, baseURL: base, entriesURL: entries}, nil
}

// Candidates returns the ordered, deduplicated candidate URLs for ref.
// Absolute and root-relative references produce a single candidate.
func (r *Resolver) Candidates(ref string) []string {
	if ref == "" {
		return nil
	}

	// Absolute or protocol-relative: sole candidate.
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(ref, "//") {
		return []string{ref}
	}
	// Root-relative: resolve against the site origin only.
	if strings.HasPrefix(ref, "/") {
		if u, err := r.baseURL.Parse(ref); err == nil {
			return []string{u.String()}
		}
		return []string{ref}
	}

	var cands []string
	add := func(base *url.URL, rel string) {
		u, err := base.Parse(rel)
		if err != nil {
			return
		}
		cands = append(cands, u.String())
	}

	add(r.pageURL, ref)
	add(r.baseURL, ref)

	fname := path.Base(ref)
	add(r.entriesURL, fname)
	add(r.baseURL, "entries/"+fname)
	add(r.baseURL, "./"+ref)

	// Dedupe preserving first-seen order.
	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Resolve tries each candidate strictly in order and returns the body of the
// first fetch that succeeds. It fails with apperr.ErrNoPath for an empty
// reference and *apperr.AllCandidatesFailedError when nothing resolves.
// Resolution results are not cached across calls.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", apperr.ErrNoPath
	}
	cands := r.Candidates(ref)
	if len(cands) == 0 {
		return "", apperr.ErrNoPath
	}
	for _, c := range cands {
		data, err := r.fetcher.Fetch(ctx, c)
		if err == nil {
			return string(data), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", &apperr.AllCandidatesFailedError{Ref: ref, Candidates: len(cands)}
}
