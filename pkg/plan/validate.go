package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidationFailed indicates the plan failed validation.
var ErrValidationFailed = errors.New("plan validation failed")

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path names the problematic field (e.g. "scoring.threshold").
	Path string

	// Message describes the validation failure.
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "plan validation failed with %d errors:\n", len(e))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error type.
func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks plan fields before defaults are applied.
func Validate(p *Plan) error {
	var errs ValidationErrors

	if len(p.AllQueries()) == 0 {
		errs = append(errs, ValidationError{
			Path: "queries", Message: "at least one search query is required",
		})
	}
	for name, terms := range p.Queries {
		for i, q := range terms {
			if strings.TrimSpace(q) == "" {
				errs = append(errs, ValidationError{
					Path:    fmt.Sprintf("queries.%s[%d]", name, i),
					Message: "query must not be blank",
				})
			}
		}
	}

	if len(p.Locations) == 0 {
		errs = append(errs, ValidationError{
			Path: "locations", Message: "at least one location is required",
		})
	}
	for i, loc := range p.Locations {
		if strings.TrimSpace(loc) == "" {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("locations[%d]", i),
				Message: "location must not be blank",
			})
		}
	}

	if p.Fetch.ResultsWanted < 0 {
		errs = append(errs, ValidationError{
			Path: "fetch.results_wanted", Message: "must not be negative",
		})
	}
	if p.Fetch.HoursOld < 0 {
		errs = append(errs, ValidationError{
			Path: "fetch.hours_old", Message: "must not be negative",
		})
	}

	if p.Filter.MinSimilarity < 0 || p.Filter.MinSimilarity > 100 {
		errs = append(errs, ValidationError{
			Path: "filter.min_similarity", Message: "must be in [0, 100]",
		})
	}

	if p.Scoring.Threshold < 0 {
		errs = append(errs, ValidationError{
			Path: "scoring.threshold", Message: "must not be negative",
		})
	}
	for name, cat := range p.Scoring.Categories {
		if cat.Weight <= 0 {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("scoring.categories.%s.weight", name),
				Message: "must be positive",
			})
		}
		if len(cat.Keywords) == 0 {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("scoring.categories.%s.keywords", name),
				Message: "at least one keyword is required",
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
