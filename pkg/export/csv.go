// Package export writes run results to timestamped CSV files and
// locates previous exports.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jobsift/jobsift/pkg/model"
)

// filePattern matches exported result files at any depth below the
// export directory.
const filePattern = "**/jobs_*.csv"

var header = []string{
	"title", "company", "location", "site", "job_type", "is_remote",
	"min_amount", "max_amount", "currency", "interval", "date_posted",
	"search_query", "search_location", "relevance_score", "url",
}

// WriteCSV writes the jobs to a timestamped CSV file under dir and
// returns the file path. Rows are ordered by relevance score
// descending, ties broken by title.
func WriteCSV(jobs []model.Job, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	sorted := make([]model.Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RelevanceScore != sorted[j].RelevanceScore {
			return sorted[i].RelevanceScore > sorted[j].RelevanceScore
		}
		return sorted[i].Title < sorted[j].Title
	})

	name := fmt.Sprintf("jobs_%s.csv", now.UTC().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i := range sorted {
		j := &sorted[i]
		datePosted := ""
		if j.DatePosted != nil {
			datePosted = j.DatePosted.UTC().Format("2006-01-02")
		}
		row := []string{
			j.Title, j.Company, j.Location, j.Site, j.JobType,
			strconv.FormatBool(j.IsRemote),
			formatAmount(j.MinAmount), formatAmount(j.MaxAmount),
			j.Currency, j.Interval, datePosted,
			j.SearchQuery, j.SearchLocation,
			strconv.Itoa(j.RelevanceScore), j.URL,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush export: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync export: %w", err)
	}

	return path, nil
}

// LatestResults returns the most recent export under dir, searching
// recursively. Returns "" when no exports exist.
//
// Timestamped names sort lexically in chronological order, so the
// newest file is the last match.
func LatestResults(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), filePattern)
	if err != nil {
		return "", fmt.Errorf("glob exports: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	sort.Strings(matches)
	// Compare basenames: subdirectory prefixes would otherwise
	// dominate the lexical order.
	latest := matches[0]
	for _, m := range matches[1:] {
		if filepath.Base(m) >= filepath.Base(latest) {
			latest = m
		}
	}

	return filepath.Join(dir, latest), nil
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
