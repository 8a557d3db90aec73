package iocache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunExport(t *testing.T) {
	store := newTestRunStore(t)
	_, err := store.SaveRun(sampleRunResult(), map[string]any{"workers": 4})
	require.NoError(t, err)

	outputFile := filepath.Join(t.TempDir(), "reposcout")
	require.NoError(t, ExecuteRunExport(store, outputFile))

	for _, suffix := range []string{".runs.parquet", ".repository_results.parquet", ".selections.parquet", ".manifest.parquet"} {
		info, err := os.Stat(outputFile + suffix)
		require.NoError(t, err, "missing %s", suffix)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExecuteRunExportErrors(t *testing.T) {
	t.Run("no output file", func(t *testing.T) {
		err := ExecuteRunExport(newTestRunStore(t), "")
		assert.ErrorContains(t, err, "--output-file is required")
	})

	t.Run("disabled store", func(t *testing.T) {
		err := ExecuteRunExport(nil, "out")
		assert.ErrorContains(t, err, "run store is disabled")
	})

	t.Run("empty store", func(t *testing.T) {
		err := ExecuteRunExport(newTestRunStore(t), filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "no run data found")
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockRunStore{}
		store.On("GetStatus").Return(schema.RunStoreStatus{}, errors.New("connection reset"))
		err := ExecuteRunExport(store, "out")
		assert.ErrorContains(t, err, "connection reset")
		store.AssertExpectations(t)
	})
}

func TestPrintStatus(t *testing.T) {
	records := newTestRecordStore(t)
	fillStore(t, records, sampleBatch())
	recordStatus, err := records.GetStatus()
	require.NoError(t, err)

	runs := newTestRunStore(t)
	_, err = runs.SaveRun(sampleRunResult(), nil)
	require.NoError(t, err)
	runStatus, err := runs.GetStatus()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		PrintRecordStatus(recordStatus)
		PrintRecordStatus(schema.RecordStoreStatus{Backend: "none"})
		PrintRunStatus(runStatus)
		PrintRunStatus(schema.RunStoreStatus{Backend: "none"})
	})
}
