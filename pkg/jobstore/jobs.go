package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jobsift/jobsift/pkg/model"
)

// keyChunkSize bounds placeholder counts per statement; SQLite caps
// bound parameters at 999 by default.
const keyChunkSize = 500

// StoredJob is a job row together with its store-managed metadata.
type StoredJob struct {
	model.Job

	Key       string
	AppliedAt *time.Time
	FirstSeen time.Time
	LastSeen  time.Time
}

// ExistingKeys returns the subset of keys already present in the store.
func ExistingKeys(ctx context.Context, db *sql.DB, keys []string) (map[string]struct{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	existing := make(map[string]struct{}, len(keys))
	for start := 0; start < len(keys); start += keyChunkSize {
		end := start + keyChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		rows, err := db.QueryContext(ctx,
			`SELECT job_key FROM jobs WHERE job_key IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing keys: %w", err)
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan key: %w", err)
			}
			existing[key] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("iterate keys: %w", err)
		}
		_ = rows.Close()
	}

	return existing, nil
}

// SaveBatch inserts or updates job rows in a single transaction and
// returns the number of rows that were new to the store.
//
// On conflict the row keeps its first_seen, takes the later last_seen,
// keeps the maximum relevance score ever observed, and fills in
// description, URL, and salary details the stored row was missing.
func SaveBatch(ctx context.Context, db *sql.DB, jobs []model.Job, now time.Time) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	keys := make([]string, len(jobs))
	for i := range jobs {
		keys[i] = jobs[i].Key()
	}
	existing, err := ExistingKeys(ctx, db, keys)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO jobs
		 (job_key, title, company, location, description, url, site,
		  job_type, is_remote, min_amount, max_amount, currency, interval,
		  date_posted, search_query, search_location, relevance_score,
		  first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_key) DO UPDATE SET
		   last_seen = excluded.last_seen,
		   relevance_score = MAX(relevance_score, excluded.relevance_score),
		   description = COALESCE(NULLIF(excluded.description, ''), description),
		   url = COALESCE(NULLIF(excluded.url, ''), url),
		   job_type = COALESCE(NULLIF(excluded.job_type, ''), job_type),
		   min_amount = COALESCE(NULLIF(excluded.min_amount, 0), min_amount),
		   max_amount = COALESCE(NULLIF(excluded.max_amount, 0), max_amount),
		   currency = COALESCE(NULLIF(excluded.currency, ''), currency),
		   interval = COALESCE(NULLIF(excluded.interval, ''), interval)`)
	if err != nil {
		return 0, fmt.Errorf("prepare stmt: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stamp := formatTime(now)
	inserted := 0
	for i := range jobs {
		j := &jobs[i]
		_, err := stmt.ExecContext(ctx,
			keys[i], j.Title, j.Company, j.Location, j.Description,
			j.URL, j.Site, j.JobType, j.IsRemote, j.MinAmount,
			j.MaxAmount, j.Currency, j.Interval,
			formatOptionalTime(j.DatePosted),
			j.SearchQuery, j.SearchLocation, j.RelevanceScore,
			stamp, stamp)
		if err != nil {
			return 0, fmt.Errorf("exec upsert for %s: %w", keys[i], err)
		}
		if _, ok := existing[keys[i]]; !ok {
			existing[keys[i]] = struct{}{}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// FirstSeenOn returns all jobs first seen on the given UTC calendar
// day, ordered by relevance score descending.
func FirstSeenOn(ctx context.Context, db *sql.DB, day time.Time) ([]StoredJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, selectJobColumns+`
		 FROM jobs
		 WHERE first_seen >= ? AND first_seen < ?
		 ORDER BY relevance_score DESC, first_seen ASC`,
		formatTime(dayStart), formatTime(dayEnd))
	if err != nil {
		return nil, fmt.Errorf("query first seen: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanJobs(rows)
}

// TopJobs returns the highest scoring jobs first seen at or after the
// cutoff.
func TopJobs(ctx context.Context, db *sql.DB, since time.Time, limit int) ([]StoredJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.QueryContext(ctx, selectJobColumns+`
		 FROM jobs
		 WHERE first_seen >= ?
		 ORDER BY relevance_score DESC, first_seen ASC
		 LIMIT ?`,
		formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query top jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanJobs(rows)
}

// GetJob retrieves a single job by key. Returns nil if not found.
func GetJob(ctx context.Context, db *sql.DB, key string) (*StoredJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.QueryContext(ctx, selectJobColumns+` FROM jobs WHERE job_key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// MarkApplied records an application timestamp for a job. Returns false
// if no job with the key exists.
func MarkApplied(ctx context.Context, db *sql.DB, key string, when time.Time) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := db.ExecContext(ctx,
		`UPDATE jobs SET applied_at = ? WHERE job_key = ?`,
		formatTime(when), key)
	if err != nil {
		return false, fmt.Errorf("mark applied: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteOlderThan removes jobs not seen since the cutoff. Rows with an
// application record are kept regardless of age.
func DeleteOlderThan(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := db.ExecContext(ctx,
		`DELETE FROM jobs WHERE last_seen < ? AND applied_at IS NULL`,
		formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

const selectJobColumns = `SELECT job_key, title, company, location, description,
		url, site, job_type, is_remote, min_amount, max_amount,
		currency, interval, date_posted, search_query, search_location,
		relevance_score, applied_at, first_seen, last_seen`

func scanJobs(rows *sql.Rows) ([]StoredJob, error) {
	var out []StoredJob
	for rows.Next() {
		var (
			j           StoredJob
			location    sql.NullString
			description sql.NullString
			url         sql.NullString
			site        sql.NullString
			jobType     sql.NullString
			minAmount   sql.NullFloat64
			maxAmount   sql.NullFloat64
			currency    sql.NullString
			interval    sql.NullString
			datePosted  sql.NullString
			searchQ     sql.NullString
			searchLoc   sql.NullString
			appliedAt   sql.NullString
			firstSeen   string
			lastSeen    string
		)

		err := rows.Scan(&j.Key, &j.Title, &j.Company, &location,
			&description, &url, &site, &jobType, &j.IsRemote,
			&minAmount, &maxAmount, &currency, &interval, &datePosted,
			&searchQ, &searchLoc, &j.RelevanceScore, &appliedAt,
			&firstSeen, &lastSeen)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		j.Location = location.String
		j.Description = description.String
		j.URL = url.String
		j.Site = site.String
		j.JobType = jobType.String
		j.MinAmount = minAmount.Float64
		j.MaxAmount = maxAmount.Float64
		j.Currency = currency.String
		j.Interval = interval.String
		j.SearchQuery = searchQ.String
		j.SearchLocation = searchLoc.String

		if datePosted.Valid && datePosted.String != "" {
			t, err := parseTime(datePosted.String)
			if err != nil {
				return nil, fmt.Errorf("parse date_posted: %w", err)
			}
			j.DatePosted = &t
		}
		if appliedAt.Valid && appliedAt.String != "" {
			t, err := parseTime(appliedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse applied_at: %w", err)
			}
			j.AppliedAt = &t
		}
		if j.FirstSeen, err = parseTime(firstSeen); err != nil {
			return nil, fmt.Errorf("parse first_seen: %w", err)
		}
		if j.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, fmt.Errorf("parse last_seen: %w", err)
		}

		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Timestamps are stored as RFC 3339 UTC strings so lexical order
// matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
