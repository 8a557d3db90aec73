//go:build basic

package integration

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points both stores at files inside dir.
func sqliteEnv(dir string) []string {
	return []string{
		"REPOSCOUT_RECORDS_BACKEND=sqlite",
		"REPOSCOUT_RECORDS_DB_CONNECT=" + filepath.Join(dir, "records.db"),
		"REPOSCOUT_RUNS_BACKEND=sqlite",
		"REPOSCOUT_RUNS_DB_CONNECT=" + filepath.Join(dir, "runs.db"),
	}
}

type shortlistDoc struct {
	RunID     string `json:"run_id"`
	Shortlist []struct {
		Rank       int    `json:"rank"`
		Repository string `json:"repository"`
		Category   string `json:"category"`
		Status     string `json:"status"`
		Included   bool   `json:"included"`
	} `json:"shortlist"`
	Summary struct {
		Repositories int `json:"repositories"`
	} `json:"summary"`
}

func readShortlist(t *testing.T, path string) shortlistDoc {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc shortlistDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

// TestRunFromFile ranks the batch file directly, without touching the record store.
func TestRunFromFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "shortlist.json")

	_, err := runReposcout(t, dir, sqliteEnv(dir),
		"run", batchFile(t), "--as-of", "2026-03-01T00:00:00Z", "--output", "json", "--output-file", out)
	require.NoError(t, err)

	doc := readShortlist(t, out)
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, 4, doc.Summary.Repositories)
	require.NotEmpty(t, doc.Shortlist)
	assert.NotEqual(t, "someone/tiny", doc.Shortlist[0].Repository)
	prev := 0
	for _, e := range doc.Shortlist {
		assert.Greater(t, e.Rank, prev, "shortlist follows the global ranking")
		assert.True(t, e.Included)
		prev = e.Rank
	}
}

// TestIngestThenRun stores the batch, ranks it from the record store and exports the run history.
func TestIngestThenRun(t *testing.T) {
	dir := t.TempDir()
	env := sqliteEnv(dir)

	output, err := runReposcout(t, dir, env, "ingest", batchFile(t))
	require.NoError(t, err)
	assert.Contains(t, output, "Ingested 4 repositories and 6 source records")

	output, err = runReposcout(t, dir, env, "records", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Repositories: 4")

	out := filepath.Join(dir, "rust.json")
	_, err = runReposcout(t, dir, env,
		"run", "--category", "rust-libraries", "--as-of", "2026-03-01T00:00:00Z", "--output", "json", "--output-file", out)
	require.NoError(t, err)
	doc := readShortlist(t, out)
	assert.Equal(t, 3, doc.Summary.Repositories)
	for _, e := range doc.Shortlist {
		assert.Equal(t, "rust-libraries", e.Category)
	}

	output, err = runReposcout(t, dir, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, output, "Total Runs: 1")

	export := filepath.Join(dir, "history")
	_, err = runReposcout(t, dir, env, "runs", "export", "--output-file", export)
	require.NoError(t, err)
	for _, suffix := range []string{".runs.parquet", ".repository_results.parquet", ".selections.parquet", ".manifest.parquet"} {
		assert.FileExists(t, export+suffix)
	}

	_, err = runReposcout(t, dir, env, "records", "clear")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "records.db"))
}

// TestCheckGate expects a non-zero exit code for a batch with a failing repository.
func TestCheckGate(t *testing.T) {
	dir := t.TempDir()

	output, err := runReposcout(t, dir, sqliteEnv(dir), "check", batchFile(t), "--as-of", "2026-03-01T00:00:00Z")
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.NotZero(t, exitErr.ExitCode())
	assert.Contains(t, output, "someone/tiny")
}

// TestProfilesAndVersion covers the commands that never run the pipeline.
func TestProfilesAndVersion(t *testing.T) {
	dir := t.TempDir()

	output, err := runReposcout(t, dir, sqliteEnv(dir), "profiles", "--category", "go-libraries", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, output, "category,group,key,weight")
	assert.Contains(t, output, "go-libraries")

	output, err = runReposcout(t, dir, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "reposcout CLI")
}
