// Package apperr defines the error taxonomy shared across the feed core.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing item, story, or chapter.
	ErrNotFound = errors.New("not found")

	// ErrNoPath signals an item that carries neither a markdown reference
	// nor inline content.
	ErrNoPath = errors.New("no content path")
)

// IndexFetchError reports that a remote index could not be loaded. It is
// fatal to the hydrate call that produced it.
type IndexFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *IndexFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch index %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch index %s: status %d", e.URL, e.Status)
}

func (e *IndexFetchError) Unwrap() error { return e.Err }

// AllCandidatesFailedError reports that every resolved candidate URL for a
// markdown reference failed. Ref is the original reference for diagnostics.
type AllCandidatesFailedError struct {
	Ref        string
	Candidates int
}

func (e *AllCandidatesFailedError) Error() string {
	return fmt.Sprintf("all %d candidates failed for %q", e.Candidates, e.Ref)
}
