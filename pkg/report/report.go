// Package report derives aggregate views over a set of job rows:
// which companies and locations dominate, what the postings are about,
// and how salaries spread.
package report

import (
	"sort"

	"github.com/jobsift/jobsift/pkg/match"
	"github.com/jobsift/jobsift/pkg/model"
)

// Count is a ranked (value, count) pair.
type Count struct {
	Value string
	Count int
}

// Report summarizes a job set.
type Report struct {
	TotalJobs     int
	RemoteJobs    int
	OnsiteJobs    int
	TopCompanies  []Count
	TopLocations  []Count
	TitleKeywords []Count

	// Salary figures cover only rows that carry amounts.
	JobsWithSalary   int
	AverageMinAmount float64
	AverageMaxAmount float64
}

// Options bounds the ranked lists.
type Options struct {
	TopN int
}

// Build computes a report over the given jobs.
func Build(jobs []model.Job, opts Options) *Report {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}

	r := &Report{TotalJobs: len(jobs)}

	companies := make(map[string]int)
	locations := make(map[string]int)
	keywords := make(map[string]int)

	var minSum, maxSum float64
	for i := range jobs {
		j := &jobs[i]

		if j.IsRemote {
			r.RemoteJobs++
		} else {
			r.OnsiteJobs++
		}

		if j.Company != "" {
			companies[j.Company]++
		}
		if j.Location != "" {
			locations[j.Location]++
		}
		for _, tok := range match.Tokens(j.Title) {
			keywords[tok]++
		}

		if j.MinAmount > 0 || j.MaxAmount > 0 {
			r.JobsWithSalary++
			minSum += j.MinAmount
			maxSum += j.MaxAmount
		}
	}

	if r.JobsWithSalary > 0 {
		r.AverageMinAmount = minSum / float64(r.JobsWithSalary)
		r.AverageMaxAmount = maxSum / float64(r.JobsWithSalary)
	}

	r.TopCompanies = rank(companies, opts.TopN)
	r.TopLocations = rank(locations, opts.TopN)
	r.TitleKeywords = rank(keywords, opts.TopN)
	return r
}

// rank orders counts descending, ties broken alphabetically so output
// is stable.
func rank(counts map[string]int, topN int) []Count {
	out := make([]Count, 0, len(counts))
	for v, c := range counts {
		out = append(out, Count{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
