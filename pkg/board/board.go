// Package board defines the contract between the search engine and the
// external job-board fetch primitive, together with an HTTP-backed
// implementation.
//
// A single Fetch call fans out to every site in FetchOptions.Sites, so
// throttling is enforced per call against the slowest configured site
// rather than per site.
package board

import (
	"context"

	"github.com/jobsift/jobsift/pkg/model"
)

// FetchOptions carries the per-call search parameters forwarded to the
// underlying boards.
type FetchOptions struct {
	// Sites lists the board identifiers a single fetch fans out to
	// (e.g., "indeed", "linkedin", "glassdoor").
	Sites []string

	// ResultsWanted bounds the number of rows returned per task.
	ResultsWanted int

	// HoursOld restricts results to postings newer than this age.
	// Zero means no age restriction.
	HoursOld int

	// Country selects the country-specific board domain where
	// applicable.
	Country string

	// RemoteOnly restricts results to remote postings.
	RemoteOnly bool
}

// Source fetches job rows for a single search task.
//
// Implementations must return an error wrapping ErrTransient for
// retryable failures (connectivity, timeout, upstream throttling) and
// ErrPermanent otherwise. An empty result with a nil error is a valid
// outcome and is not a failure.
type Source interface {
	Fetch(ctx context.Context, task model.SearchTask, opts FetchOptions) ([]model.Job, error)
}
