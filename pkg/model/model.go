// Package model defines the core data types shared across the search
// pipeline: search tasks, job rows, content-derived job keys, and the
// per-run summary value object.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SearchTask is a single (query, location) unit of work.
//
// Tasks are immutable; the orchestrator produces one task per entry in
// the cartesian product of configured queries and locations, and each
// task is consumed by exactly one worker.
type SearchTask struct {
	Query    string
	Location string
}

// Job is a single job posting row as returned by a board fetch.
//
// A Job is owned by the worker that fetched it until it is merged into
// the run's deduplicated result set.
type Job struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"job_url,omitempty"`
	Site        string     `json:"site,omitempty"`
	JobType     string     `json:"job_type,omitempty"`
	IsRemote    bool       `json:"is_remote,omitempty"`
	MinAmount   float64    `json:"min_amount,omitempty"`
	MaxAmount   float64    `json:"max_amount,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Interval    string     `json:"interval,omitempty"`
	DatePosted  *time.Time `json:"date_posted,omitempty"`

	// SearchQuery and SearchLocation record which task produced the row.
	SearchQuery    string `json:"search_query,omitempty"`
	SearchLocation string `json:"search_location,omitempty"`

	// RelevanceScore is assigned after deduplication. Always >= 0.
	RelevanceScore int `json:"relevance_score"`
}

// Key returns the content-derived identity for the job.
func (j *Job) Key() string {
	return KeyFor(j.Title, j.Company, j.Location)
}

// Text returns the concatenated job text used for filtering and scoring.
func (j *Job) Text() string {
	return j.Title + " " + j.Description + " " + j.Company + " " + j.Location
}

// KeyFor computes the deduplication key for a (title, company, location)
// triple: the SHA-256 hex digest of the lowercased, trimmed
// "title|company|location" string.
//
// Two rows with equal keys are the same job regardless of casing or
// incidental whitespace. The key doubles as cross-run identity in the
// job store.
func KeyFor(title, company, location string) string {
	id := strings.ToLower(strings.TrimSpace(title) + "|" +
		strings.TrimSpace(company) + "|" + strings.TrimSpace(location))
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// SearchSummary contains aggregate statistics from a completed search run.
type SearchSummary struct {
	// TotalTasks is the number of (query, location) tasks dispatched.
	TotalTasks int

	// SuccessfulTasks counts tasks whose fetch succeeded (with or
	// without rows).
	SuccessfulTasks int

	// FailedTasks counts tasks that failed permanently, including
	// transient failures that exhausted their retry budget.
	FailedTasks int

	// TotalJobsFound is the row count across all tasks before
	// deduplication.
	TotalJobsFound int

	// UniqueJobs is the row count after deduplication.
	UniqueJobs int

	// RelevantJobs is the count of rows above the relevance threshold.
	RelevantJobs int

	// NewJobs is the count of rows never seen by the job store before.
	NewJobs int

	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the wall-clock duration of the run, or zero if the
// run has not finished.
func (s *SearchSummary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Finish stamps the summary's end time.
func (s *SearchSummary) Finish() {
	s.EndTime = time.Now()
}
