// Package score assigns data-driven relevance scores to job rows.
//
// Scoring is fully configuration-driven: a set of named categories,
// each with a keyword list and an integer weight. A category
// contributes its weight at most once per job, no matter how many of
// its keywords appear.
package score

import (
	"strings"

	"github.com/jobsift/jobsift/pkg/model"
)

// Rules maps scoring categories to keywords and weights.
//
// A category present in Keywords but absent from Weights contributes
// weight zero. Rules are immutable for the duration of a run.
type Rules struct {
	Keywords map[string][]string
	Weights  map[string]int

	// Threshold is the relevance gate: a job is relevant iff its score
	// is strictly greater than Threshold.
	Threshold int
}

// Scorer computes relevance scores from job text.
type Scorer struct {
	rules Rules
}

// New constructs a Scorer from rules.
func New(rules Rules) *Scorer {
	return &Scorer{rules: rules}
}

// ScoreText returns the relevance score for arbitrary job text.
//
// The result is deterministic, case-insensitive, and non-negative:
// for any text T, ScoreText(T) == ScoreText(lower(T)).
func (s *Scorer) ScoreText(text string) int {
	lowered := strings.ToLower(text)

	total := 0
	for category, keywords := range s.rules.Keywords {
		weight := s.rules.Weights[category]
		if weight == 0 {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				total += weight
				break // saturate: one hit per category
			}
		}
	}
	return total
}

// ScoreJob scores a job from its concatenated text and stamps the
// result on the row.
func (s *Scorer) ScoreJob(job *model.Job) int {
	job.RelevanceScore = s.ScoreText(job.Text())
	return job.RelevanceScore
}

// Relevant reports whether the score clears the threshold. Ties at the
// threshold are excluded.
func (s *Scorer) Relevant(scoreValue int) bool {
	return scoreValue > s.rules.Threshold
}

// FilterRelevant scores every job and returns the relevant subset,
// preserving input order.
func (s *Scorer) FilterRelevant(jobs []model.Job) []model.Job {
	var relevant []model.Job
	for i := range jobs {
		if s.Relevant(s.ScoreJob(&jobs[i])) {
			relevant = append(relevant, jobs[i])
		}
	}
	return relevant
}
