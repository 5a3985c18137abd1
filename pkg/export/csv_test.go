package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/pkg/model"
)

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	posted := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	jobs := []model.Job{
		{Title: "Mid Role", Company: "Acme", RelevanceScore: 9},
		{Title: "Top Role", Company: "Initech", RelevanceScore: 20,
			MinAmount: 70000, Currency: "EUR", DatePosted: &posted},
		{Title: "Low Role", Company: "Acme", RelevanceScore: 2},
	}

	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	path, err := WriteCSV(jobs, dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jobs_20260301_083000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus three rows")

	assert.Equal(t, header, records[0])
	assert.Equal(t, "Top Role", records[1][0], "rows ordered by score descending")
	assert.Equal(t, "70000", records[1][6])
	assert.Equal(t, "2026-02-28", records[1][10])
	assert.Equal(t, "Mid Role", records[2][0])
	assert.Equal(t, "Low Role", records[3][0])
	assert.Equal(t, "", records[3][6], "zero salary exported as blank")
}

func TestWriteCSV_EmptyWritesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCSV(nil, dir, time.Now())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteCSV_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	_, err := WriteCSV(nil, dir, time.Now())
	require.NoError(t, err)
}

func TestLatestResults(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{
		"jobs_20260225_090000.csv",
		"jobs_20260301_083000.csv",
		"jobs_20260228_120000.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("title\n"), 0o644))
	}
	// Noise that must not match.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	latest, err := LatestResults(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jobs_20260301_083000.csv"), latest)
}

func TestLatestResults_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "2026", "03")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jobs_20260225_090000.csv"), []byte("t\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "jobs_20260301_083000.csv"), []byte("t\n"), 0o644))

	latest, err := LatestResults(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026", "03", "jobs_20260301_083000.csv"), latest)
}

func TestLatestResults_Empty(t *testing.T) {
	latest, err := LatestResults(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, latest)
}
