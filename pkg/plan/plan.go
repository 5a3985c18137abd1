// Package plan defines the search plan: which queries to run, where,
// against which boards, and how the resulting rows are filtered and
// scored. Plans are authored as YAML or JSON files.
package plan

import "sort"

// Plan is the top-level search plan document.
type Plan struct {
	// Queries groups search terms by category. Category names are
	// labels only; every term in every category is searched.
	Queries map[string][]string `json:"queries" yaml:"queries"`

	// Locations to search in. "Remote" is a placeholder location
	// and disables location post-filtering for its tasks.
	Locations []string `json:"locations" yaml:"locations"`

	// Sites lists the job boards to query.
	Sites []string `json:"sites,omitempty" yaml:"sites,omitempty"`

	Fetch   FetchConfig   `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	Filter  FilterConfig  `json:"filter,omitempty" yaml:"filter,omitempty"`
	Scoring ScoringConfig `json:"scoring,omitempty" yaml:"scoring,omitempty"`
}

// FetchConfig carries per-call parameters forwarded to the boards.
type FetchConfig struct {
	// ResultsWanted caps rows fetched per task.
	ResultsWanted int `json:"results_wanted,omitempty" yaml:"results_wanted,omitempty"`

	// HoursOld drops postings older than this many hours. Zero
	// means no age cutoff.
	HoursOld int `json:"hours_old,omitempty" yaml:"hours_old,omitempty"`

	// Country is the board-side country code (e.g. "de", "us").
	Country string `json:"country,omitempty" yaml:"country,omitempty"`

	// RemoteOnly restricts results to remote postings.
	RemoteOnly bool `json:"remote_only,omitempty" yaml:"remote_only,omitempty"`
}

// FilterConfig controls fuzzy post-filtering of fetched rows.
type FilterConfig struct {
	// MinSimilarity is the fuzzy match cutoff in [0, 100].
	MinSimilarity int `json:"min_similarity,omitempty" yaml:"min_similarity,omitempty"`

	// CheckQueryTerms and CheckLocation toggle the two filter
	// passes. Both default to enabled.
	CheckQueryTerms *bool `json:"check_query_terms,omitempty" yaml:"check_query_terms,omitempty"`
	CheckLocation   *bool `json:"check_location,omitempty" yaml:"check_location,omitempty"`
}

// QueryTermsEnabled reports whether query-term filtering is on.
func (f *FilterConfig) QueryTermsEnabled() bool {
	return f.CheckQueryTerms == nil || *f.CheckQueryTerms
}

// LocationEnabled reports whether location filtering is on.
func (f *FilterConfig) LocationEnabled() bool {
	return f.CheckLocation == nil || *f.CheckLocation
}

// ScoringConfig drives relevance scoring.
type ScoringConfig struct {
	// Threshold is the strict lower bound for relevance: a job is
	// relevant only when its score exceeds this value.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// Categories maps a category name to its keywords and weight.
	// A category contributes its weight at most once per job.
	Categories map[string]Category `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Category is one scoring bucket.
type Category struct {
	Weight   int      `json:"weight" yaml:"weight"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Defaults applied to optional fields.
const (
	DefaultResultsWanted = 25
	DefaultHoursOld      = 72
	DefaultMinSimilarity = 80
	DefaultThreshold     = 10
)

// ApplyDefaults fills unset optional fields with their defaults.
func (p *Plan) ApplyDefaults() {
	if len(p.Sites) == 0 {
		p.Sites = []string{"adzuna"}
	}
	if p.Fetch.ResultsWanted == 0 {
		p.Fetch.ResultsWanted = DefaultResultsWanted
	}
	if p.Fetch.HoursOld == 0 {
		p.Fetch.HoursOld = DefaultHoursOld
	}
	if p.Filter.MinSimilarity == 0 {
		p.Filter.MinSimilarity = DefaultMinSimilarity
	}
	if p.Scoring.Threshold == 0 {
		p.Scoring.Threshold = DefaultThreshold
	}
}

// AllQueries returns every search term across all categories, in
// deterministic order (category name, then authoring order).
func (p *Plan) AllQueries() []string {
	categories := make([]string, 0, len(p.Queries))
	for name := range p.Queries {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var out []string
	seen := make(map[string]struct{})
	for _, name := range categories {
		for _, q := range p.Queries[name] {
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// KeywordsByCategory returns the scoring keywords keyed by category.
func (p *Plan) KeywordsByCategory() map[string][]string {
	out := make(map[string][]string, len(p.Scoring.Categories))
	for name, cat := range p.Scoring.Categories {
		out[name] = cat.Keywords
	}
	return out
}

// WeightsByCategory returns the scoring weights keyed by category.
func (p *Plan) WeightsByCategory() map[string]int {
	out := make(map[string]int, len(p.Scoring.Categories))
	for name, cat := range p.Scoring.Categories {
		out[name] = cat.Weight
	}
	return out
}
