package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats summarizes the stored job corpus.
type Stats struct {
	TotalJobs    int64
	AppliedJobs  int64
	RemoteJobs   int64
	NewLast24h   int64
	AverageScore float64
	MaxScore     int64
	BySite       map[string]int64
	OldestSeen   *time.Time
	NewestSeen   *time.Time
}

// GetStats computes corpus-wide statistics in a handful of aggregate
// queries.
func GetStats(ctx context.Context, db *sql.DB, now time.Time) (*Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Stats{BySite: make(map[string]int64)}

	var avgScore sql.NullFloat64
	var maxScore sql.NullInt64
	var oldestRaw, newestRaw sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN applied_at IS NOT NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_remote THEN 1 ELSE 0 END), 0),
		       AVG(relevance_score),
		       MAX(relevance_score),
		       MIN(first_seen),
		       MAX(first_seen)
		FROM jobs
	`).Scan(&s.TotalJobs, &s.AppliedJobs, &s.RemoteJobs,
		&avgScore, &maxScore, &oldestRaw, &newestRaw)
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}

	if avgScore.Valid {
		s.AverageScore = avgScore.Float64
	}
	if maxScore.Valid {
		s.MaxScore = maxScore.Int64
	}
	if oldestRaw.Valid && oldestRaw.String != "" {
		t, err := parseTime(oldestRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse oldest first_seen: %w", err)
		}
		s.OldestSeen = &t
	}
	if newestRaw.Valid && newestRaw.String != "" {
		t, err := parseTime(newestRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse newest first_seen: %w", err)
		}
		s.NewestSeen = &t
	}

	cutoff := formatTime(now.Add(-24 * time.Hour))
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE first_seen >= ?`, cutoff,
	).Scan(&s.NewLast24h); err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(site, ''), 'unknown'), COUNT(*)
		FROM jobs
		GROUP BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("query site counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var site string
		var count int64
		if err := rows.Scan(&site, &count); err != nil {
			return nil, fmt.Errorf("scan site count: %w", err)
		}
		s.BySite[site] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site counts: %w", err)
	}

	return s, nil
}
