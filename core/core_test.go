package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/reposcout/internal/iocache"
	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const coreBatchYAML = `
repositories:
  - id: tokio-rs/tokio
    category: rust-libraries
  - id: someone/tiny
    category: rust-libraries
records:
  - repository: tokio-rs/tokio
    source: host
    observed_at: 2026-02-28T00:00:00Z
    fields:
      stars: 27000
      forks: 2500
      contributors: 800
      has_tests: true
  - repository: tokio-rs/tokio
    source: registry-crates
    observed_at: 2026-02-28T00:00:00Z
    fields:
      downloads: 250000000
  - repository: someone/tiny
    source: host
    observed_at: 2026-02-28T00:00:00Z
    fields:
      stars: 12
`

func writeBatchFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(coreBatchYAML), 0o644))
	return path
}

func TestExecuteIngest(t *testing.T) {
	t.Run("no input files", func(t *testing.T) {
		err := ExecuteIngest(context.Background(), testRunConfig(), &iocache.MockStoreManager{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no input files")
	})

	t.Run("record store disabled", func(t *testing.T) {
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(nil)
		cfg := testRunConfig()
		cfg.InputFiles = []string{writeBatchFile(t)}

		err := ExecuteIngest(context.Background(), cfg, mgr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record store is disabled")
	})

	t.Run("stores repositories then records", func(t *testing.T) {
		records := &iocache.MockRecordStore{}
		records.On("PutRepositories", mock.MatchedBy(func(r []schema.Repository) bool { return len(r) == 2 })).Return(2, nil).Once()
		records.On("AppendRecords", mock.MatchedBy(func(r []schema.SourceRecord) bool { return len(r) == 3 })).Return(3, nil).Once()
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		cfg := testRunConfig()
		cfg.InputFiles = []string{writeBatchFile(t)}

		require.NoError(t, ExecuteIngest(context.Background(), cfg, mgr))
		records.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		records := &iocache.MockRecordStore{}
		records.On("PutRepositories", mock.Anything).Return(0, errors.New("disk full"))
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		cfg := testRunConfig()
		cfg.InputFiles = []string{writeBatchFile(t)}

		err := ExecuteIngest(context.Background(), cfg, mgr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		records.AssertNotCalled(t, "AppendRecords", mock.Anything)
	})
}

func TestRunPipelineSources(t *testing.T) {
	t.Run("input files take precedence over the record store", func(t *testing.T) {
		records := &iocache.MockRecordStore{}
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		mgr.On("GetRunStore").Return(nil)
		cfg := testRunConfig()
		cfg.InputFiles = []string{writeBatchFile(t)}

		result, err := RunPipelineSilently(context.Background(), cfg, mgr)
		require.NoError(t, err)
		require.NotNil(t, result.Global)
		assert.Equal(t, "tokio-rs/tokio", result.Global.Entries[0].RepositoryID)
		records.AssertNotCalled(t, "LoadBatch", mock.Anything, mock.Anything)
	})

	t.Run("record store is read as of the configured time", func(t *testing.T) {
		records := &iocache.MockRecordStore{}
		records.On("LoadBatch", runAsOf, []schema.Category{schema.RustLibraries}).Return(rustBatch(), nil).Once()
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		mgr.On("GetRunStore").Return(nil)
		cfg := testRunConfig()
		cfg.Categories = []schema.Category{schema.RustLibraries}

		result, err := RunPipelineSilently(context.Background(), cfg, mgr)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Summary.Repositories)
		records.AssertExpectations(t)
	})

	t.Run("no files and no record store", func(t *testing.T) {
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(nil)

		_, err := RunPipelineSilently(context.Background(), testRunConfig(), mgr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record store is disabled")
	})

	t.Run("record store failure", func(t *testing.T) {
		records := &iocache.MockRecordStore{}
		records.On("LoadBatch", mock.Anything, mock.Anything).Return(schema.Batch{}, errors.New("connection refused"))
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)

		_, err := RunPipelineSilently(context.Background(), testRunConfig(), mgr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load source records")
	})

	t.Run("empty batch", func(t *testing.T) {
		mgr, _ := storeManagerWith(schema.Batch{})
		_, err := RunPipelineSilently(context.Background(), testRunConfig(), mgr)
		assert.ErrorIs(t, err, schema.ErrNoSourceData)
	})
}

func TestRunPipelinePersistence(t *testing.T) {
	t.Run("runs are saved with their config", func(t *testing.T) {
		runs := &iocache.MockRunStore{}
		runs.On("SaveRun", mock.AnythingOfType("*schema.RunResult"), mock.MatchedBy(func(p map[string]any) bool {
			return p["algorithm"] == "weighted_sum"
		})).Return(int64(7), nil).Once()
		records := &iocache.MockRecordStore{}
		records.On("LoadBatch", mock.Anything, mock.Anything).Return(rustBatch(), nil)
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		mgr.On("GetRunStore").Return(runs)

		result, err := RunPipelineSilently(context.Background(), testRunConfig(), mgr)
		require.NoError(t, err)
		require.NotNil(t, result)
		runs.AssertExpectations(t)
	})

	t.Run("save failures do not fail the run", func(t *testing.T) {
		runs := &iocache.MockRunStore{}
		runs.On("SaveRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("read-only database"))
		records := &iocache.MockRecordStore{}
		records.On("LoadBatch", mock.Anything, mock.Anything).Return(rustBatch(), nil)
		mgr := &iocache.MockStoreManager{}
		mgr.On("GetRecordStore").Return(records)
		mgr.On("GetRunStore").Return(runs)

		result, err := RunPipelineSilently(context.Background(), testRunConfig(), mgr)
		require.NoError(t, err)
		assert.NotNil(t, result.Global)
		runs.AssertNumberOfCalls(t, "SaveRun", 1)
	})
}

func TestExecuteRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run.json")
	mgr, _ := storeManagerWith(rustBatch())
	cfg := testRunConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = out

	require.NoError(t, ExecuteRun(context.Background(), cfg, mgr))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "weighted_sum", doc["algorithm"])
	assert.NotEmpty(t, doc["run_id"])
	assert.Contains(t, string(data), "tokio-rs/tokio")
}

func TestExecuteRunErrors(t *testing.T) {
	mgr, _ := storeManagerWith(schema.Batch{})
	err := ExecuteRun(context.Background(), testRunConfig(), mgr)
	assert.ErrorIs(t, err, schema.ErrNoSourceData)
}

func TestExecuteProfiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "profiles.json")
	cfg := testRunConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = out
	cfg.Categories = []schema.Category{schema.GoLibraries}

	require.NoError(t, ExecuteProfiles(context.Background(), cfg, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc struct {
		Profiles []struct {
			Category string `json:"category"`
		} `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Profiles, 1)
	assert.Equal(t, "go-libraries", doc.Profiles[0].Category)
}
