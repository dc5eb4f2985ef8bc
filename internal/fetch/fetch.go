// Package fetch abstracts retrieval of site resources (the feed index,
// markdown bodies, story chapters) behind a single interface so the rest of
// the core does not care whether content comes over HTTP or from a local
// site directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves the resource identified by a candidate URL.
type Fetcher interface {
	// Fetch returns the raw bytes of the resource. A non-success outcome
	// (network failure, missing file, non-2xx status) is an error.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError reports a non-success HTTP status for a fetched URL.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// HTTP fetches resources with plain GET requests.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP fetcher. A nil client gets a default with a
// 15 second timeout.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTP{client: client}
}

// Fetch performs a GET and returns the body for 2xx responses.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	return data, nil
}
