package match

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/jobsift/jobsift/pkg/model"
)

// placeholderLocations are search locations that name a work
// arrangement rather than a place; the location check is skipped for
// them because board rows rarely echo the placeholder verbatim.
var placeholderLocations = map[string]struct{}{
	"remote":    {},
	"anywhere":  {},
	"worldwide": {},
}

// Config configures the post filter.
type Config struct {
	// MinSimilarity is the fuzzy match threshold on the 0-100 scale.
	MinSimilarity int

	// CheckQueryTerms requires every query token to match the job text.
	CheckQueryTerms bool

	// CheckLocation requires at least one location token to match the
	// job text, unless the search location is a placeholder.
	CheckLocation bool
}

// PostFilter rejects rows that do not correspond to the task that
// fetched them. With both checks disabled it is a pass-through.
//
// PostFilter is stateless and safe for concurrent use.
type PostFilter struct {
	cfg Config
}

// New constructs a PostFilter.
func New(cfg Config) *PostFilter {
	return &PostFilter{cfg: cfg}
}

// Matches reports whether the term occurs in the text, directly or
// fuzzily.
//
// Fast path: the folded term is a substring of the folded text. Slow
// path: some token of the text scores at least MinSimilarity against
// the term, where the score is the greater of the full-string ratio
// and the partial (substring-tolerant) ratio. Cost is bounded by
// |text tokens| fuzzy comparisons; query terms are short phrases.
func (f *PostFilter) Matches(term, text string) bool {
	nTerm := Fold(term)
	nText := Fold(text)

	if nTerm == "" {
		return true
	}
	if strings.Contains(nText, nTerm) {
		return true
	}

	for _, tok := range Tokens(text) {
		score := fuzzy.Ratio(nTerm, tok)
		if partial := fuzzy.PartialRatio(nTerm, tok); partial > score {
			score = partial
		}
		if score >= f.cfg.MinSimilarity {
			return true
		}
	}
	return false
}

// Keep reports whether the row survives post-filtering against the
// (query, location) task recorded on it.
func (f *PostFilter) Keep(job *model.Job) bool {
	if !f.cfg.CheckQueryTerms && !f.cfg.CheckLocation {
		return true
	}

	text := job.Text()

	if f.cfg.CheckQueryTerms {
		for _, term := range Tokens(job.SearchQuery) {
			if !f.Matches(term, text) {
				return false
			}
		}
	}

	if f.cfg.CheckLocation && !isPlaceholderLocation(job.SearchLocation) {
		matched := false
		for _, term := range Tokens(job.SearchLocation) {
			if f.Matches(term, text) {
				matched = true
				break
			}
		}
		if len(Tokens(job.SearchLocation)) > 0 && !matched {
			return false
		}
	}

	return true
}

func isPlaceholderLocation(location string) bool {
	_, ok := placeholderLocations[Fold(strings.TrimSpace(location))]
	return ok
}
