package iocache

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeAsOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestRecordStore(t *testing.T) *RecordStoreImpl {
	t.Helper()
	store, err := NewRecordStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*RecordStoreImpl)
}

func sampleBatch() schema.Batch {
	released := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	return schema.Batch{
		Repositories: []schema.Repository{
			{ID: "tokio-rs/tokio", Category: schema.RustLibraries},
			{ID: "spf13/cobra", Category: schema.GoLibraries},
		},
		Records: []schema.SourceRecord{
			{
				RepositoryID: "tokio-rs/tokio",
				Source:       schema.HostSource,
				ObservedAt:   storeAsOf.Add(-48 * time.Hour),
				Fields: map[schema.FieldName]schema.FieldValue{
					schema.StarsField:   schema.Number(27000),
					schema.LicenseField: schema.String("MIT"),
				},
			},
			{
				RepositoryID: "tokio-rs/tokio",
				Source:       schema.RegistryCratesSource,
				ObservedAt:   storeAsOf.Add(-24 * time.Hour),
				Fields: map[schema.FieldName]schema.FieldValue{
					schema.DownloadsField:     schema.Number(2.5e8),
					schema.LastReleaseAtField: schema.Timestamp(released),
				},
			},
			{
				RepositoryID: "spf13/cobra",
				Source:       schema.HostSource,
				ObservedAt:   storeAsOf.Add(24 * time.Hour), // after asOf
				Fields: map[schema.FieldName]schema.FieldValue{
					schema.StarsField: schema.Number(39000),
				},
			},
		},
	}
}

func fillStore(t *testing.T, store *RecordStoreImpl, batch schema.Batch) {
	t.Helper()
	n, err := store.PutRepositories(batch.Repositories)
	require.NoError(t, err)
	require.Equal(t, len(batch.Repositories), n)
	n, err = store.AppendRecords(batch.Records)
	require.NoError(t, err)
	require.Equal(t, len(batch.Records), n)
}

func TestRecordStore_NoneBackend(t *testing.T) {
	store, err := NewRecordStore(schema.NoneBackend, "")
	require.NoError(t, err)

	n, err := store.PutRepositories(sampleBatch().Repositories)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.AppendRecords(sampleBatch().Records)
	assert.NoError(t, err)
	assert.Zero(t, n)

	batch, err := store.LoadBatch(time.Time{})
	assert.NoError(t, err)
	assert.Empty(t, batch.Repositories)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)

	assert.NoError(t, store.Close())
}

func TestNewRecordStoreErrors(t *testing.T) {
	_, err := NewRecordStore("oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestRecordStore_LoadBatch(t *testing.T) {
	store := newTestRecordStore(t)
	fillStore(t, store, sampleBatch())

	t.Run("everything", func(t *testing.T) {
		batch, err := store.LoadBatch(time.Time{})
		require.NoError(t, err)
		assert.Len(t, batch.Repositories, 2)
		assert.Len(t, batch.Records, 3)
		assert.Equal(t, "spf13/cobra", batch.Repositories[0].ID, "repositories are ordered by id")
	})

	t.Run("as of excludes later observations", func(t *testing.T) {
		batch, err := store.LoadBatch(storeAsOf)
		require.NoError(t, err)
		assert.Len(t, batch.Repositories, 2)
		require.Len(t, batch.Records, 2)
		for _, rec := range batch.Records {
			assert.Equal(t, "tokio-rs/tokio", rec.RepositoryID)
			assert.False(t, rec.ObservedAt.After(storeAsOf))
		}
	})

	t.Run("category filter", func(t *testing.T) {
		batch, err := store.LoadBatch(time.Time{}, schema.GoLibraries)
		require.NoError(t, err)
		require.Len(t, batch.Repositories, 1)
		assert.Equal(t, schema.GoLibraries, batch.Repositories[0].Category)
		require.Len(t, batch.Records, 1)
		assert.Equal(t, "spf13/cobra", batch.Records[0].RepositoryID)
	})

	t.Run("fields keep their kinds", func(t *testing.T) {
		batch, err := store.LoadBatch(storeAsOf, schema.RustLibraries)
		require.NoError(t, err)
		want := sampleBatch().Records[:2]
		require.Len(t, batch.Records, len(want))
		for i, rec := range batch.Records {
			assert.Equal(t, want[i].Source, rec.Source)
			assert.True(t, want[i].ObservedAt.Equal(rec.ObservedAt))
			require.Len(t, rec.Fields, len(want[i].Fields))
			for name, value := range want[i].Fields {
				assert.True(t, value.Equal(rec.Fields[name]), "field %s: want %v, got %v", name, value, rec.Fields[name])
			}
		}
	})
}

func TestRecordStore_FieldKindsRoundTrip(t *testing.T) {
	store := newTestRecordStore(t)
	fields := map[schema.FieldName]schema.FieldValue{
		schema.StarsField:         schema.Number(math.NaN()),
		schema.DownloadsField:     schema.Number(math.Inf(1)),
		schema.ForksField:         schema.Number(0.1 + 0.2),
		schema.LicenseField:       schema.String("2026-01-01T00:00:00Z"),
		schema.LastReleaseAtField: schema.Timestamp(time.Date(2026, 2, 10, 8, 30, 0, 123456789, time.UTC)),
	}
	fillStore(t, store, schema.Batch{
		Repositories: []schema.Repository{{ID: "tokio-rs/tokio", Category: schema.RustLibraries}},
		Records: []schema.SourceRecord{
			{RepositoryID: "tokio-rs/tokio", Source: schema.HostSource, ObservedAt: storeAsOf, Fields: fields},
		},
	})

	batch, err := store.LoadBatch(storeAsOf)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	got := batch.Records[0].Fields
	require.Len(t, got, len(fields))
	for name, want := range fields {
		assert.Equal(t, want.Kind, got[name].Kind, "field %s", name)
		assert.True(t, want.Equal(got[name]), "field %s: want %v, got %v", name, want, got[name])
	}
}

func TestDecodeFieldsAcceptsPlainJSON(t *testing.T) {
	fields, err := decodeFields(`{"stars": 27000, "license": "MIT"}`)
	require.NoError(t, err)
	assert.True(t, schema.Number(27000).Equal(fields[schema.StarsField]))
	assert.True(t, schema.String("MIT").Equal(fields[schema.LicenseField]))

	_, err = decodeFields(`{"stars": {"kind": "vector", "value": "1"}}`)
	assert.Error(t, err)
	_, err = decodeFields(`not json`)
	assert.Error(t, err)
}

func TestRecordStore_PutRepositoriesUpserts(t *testing.T) {
	store := newTestRecordStore(t)
	fillStore(t, store, sampleBatch())

	_, err := store.PutRepositories([]schema.Repository{{ID: "spf13/cobra", Category: schema.CLITools}})
	require.NoError(t, err)

	batch, err := store.LoadBatch(time.Time{}, schema.CLITools)
	require.NoError(t, err)
	require.Len(t, batch.Repositories, 1)
	assert.Equal(t, "spf13/cobra", batch.Repositories[0].ID)

	_, err = store.PutRepositories([]schema.Repository{{ID: "", Category: schema.CLITools}})
	assert.ErrorIs(t, err, schema.ErrInvalidConfig)
}

func TestRecordStore_AppendOnly(t *testing.T) {
	store := newTestRecordStore(t)
	batch := sampleBatch()
	fillStore(t, store, batch)

	// Appending the same observations again keeps both copies
	_, err := store.AppendRecords(batch.Records)
	require.NoError(t, err)

	loaded, err := store.LoadBatch(time.Time{})
	require.NoError(t, err)
	assert.Len(t, loaded.Records, 2*len(batch.Records))
}

func TestRecordStore_ChunkedInsert(t *testing.T) {
	store := newTestRecordStore(t)
	_, err := store.PutRepositories([]schema.Repository{{ID: "a/b", Category: schema.DataTools}})
	require.NoError(t, err)

	records := make([]schema.SourceRecord, recordInsertChunk*2+7)
	for i := range records {
		records[i] = schema.SourceRecord{
			RepositoryID: "a/b",
			Source:       schema.HostSource,
			ObservedAt:   storeAsOf.Add(-time.Duration(i) * time.Hour),
			Fields:       map[schema.FieldName]schema.FieldValue{schema.StarsField: schema.Number(float64(i))},
		}
	}
	n, err := store.AppendRecords(records)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, len(records), status.Records)
}

func TestRecordStore_GetStatus(t *testing.T) {
	store := newTestRecordStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.Records)
	assert.True(t, status.LastObserved.IsZero())

	batch := sampleBatch()
	fillStore(t, store, batch)

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Equal(t, 2, status.Repositories)
	assert.Equal(t, 3, status.Records)
	assert.True(t, status.LastObserved.Equal(storeAsOf.Add(24*time.Hour)))
	assert.True(t, status.OldestObserved.Equal(storeAsOf.Add(-48*time.Hour)))
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestRecordStore_File(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.db")

	store, err := NewRecordStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	fillStore(t, store.(*RecordStoreImpl), sampleBatch())
	require.NoError(t, store.Close())

	// Reopening sees the same data
	store, err = NewRecordStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	batch, err := store.LoadBatch(time.Time{})
	require.NoError(t, err)
	assert.Len(t, batch.Records, 3)
}
