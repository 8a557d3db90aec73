// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/reposcout/schema"
)

// StoreManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetRecordStore() RecordStore
	GetRunStore() RunStore
}

// RecordStore defines the append-only storage of repositories and source records.
type RecordStore interface {
	// PutRepositories inserts or updates the category of each repository.
	PutRepositories(repos []schema.Repository) (int, error)

	// AppendRecords stores source records. Records are never updated in place.
	AppendRecords(records []schema.SourceRecord) (int, error)

	// LoadBatch returns the stored repositories and every record observed at or before asOf.
	// A zero asOf loads everything. An empty category list loads every category.
	LoadBatch(asOf time.Time, categories ...schema.Category) (schema.Batch, error)

	// GetStatus returns status information about the record store
	GetStatus() (schema.RecordStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// RunStore defines the interface for persisting run artifacts.
type RunStore interface {
	// SaveRun stores every artifact of a run and returns the numeric run ID.
	SaveRun(result *schema.RunResult, configParams map[string]any) (int64, error)

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStoreStatus, error)

	// GetAllRuns returns every stored run, oldest first.
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllRepositoryResults returns every stored per-repository result.
	GetAllRepositoryResults() ([]schema.RepositoryResultRecord, error)

	// GetAllSelections returns every stored shortlist entry.
	GetAllSelections() ([]schema.SelectionRecord, error)

	// GetAllManifest returns every stored manifest entry.
	GetAllManifest() ([]schema.ManifestRecord, error)

	// Close closes the underlying connection
	Close() error
}
