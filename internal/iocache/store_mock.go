package iocache

import (
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetRecordStore implements the StoreManager interface.
func (m *MockStoreManager) GetRecordStore() contract.RecordStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RecordStore)
	return store
}

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockRecordStore is a mock implementation of RecordStore for testing.
type MockRecordStore struct {
	mock.Mock
}

var _ contract.RecordStore = &MockRecordStore{} // Compile-time check

// PutRepositories implements the RecordStore interface.
func (m *MockRecordStore) PutRepositories(repos []schema.Repository) (int, error) {
	args := m.Called(repos)
	return args.Int(0), args.Error(1)
}

// AppendRecords implements the RecordStore interface.
func (m *MockRecordStore) AppendRecords(records []schema.SourceRecord) (int, error) {
	args := m.Called(records)
	return args.Int(0), args.Error(1)
}

// LoadBatch implements the RecordStore interface.
func (m *MockRecordStore) LoadBatch(asOf time.Time, categories ...schema.Category) (schema.Batch, error) {
	args := m.Called(asOf, categories)
	return args.Get(0).(schema.Batch), args.Error(1)
}

// GetStatus implements the RecordStore interface.
func (m *MockRecordStore) GetStatus() (schema.RecordStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RecordStoreStatus), args.Error(1)
}

// Close implements the RecordStore interface.
func (m *MockRecordStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// SaveRun implements the RunStore interface.
func (m *MockRunStore) SaveRun(result *schema.RunResult, configParams map[string]any) (int64, error) {
	args := m.Called(result, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStoreStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	return args.Get(0).([]schema.RunRecord), args.Error(1)
}

// GetAllRepositoryResults implements the RunStore interface.
func (m *MockRunStore) GetAllRepositoryResults() ([]schema.RepositoryResultRecord, error) {
	args := m.Called()
	return args.Get(0).([]schema.RepositoryResultRecord), args.Error(1)
}

// GetAllSelections implements the RunStore interface.
func (m *MockRunStore) GetAllSelections() ([]schema.SelectionRecord, error) {
	args := m.Called()
	return args.Get(0).([]schema.SelectionRecord), args.Error(1)
}

// GetAllManifest implements the RunStore interface.
func (m *MockRunStore) GetAllManifest() ([]schema.ManifestRecord, error) {
	args := m.Called()
	return args.Get(0).([]schema.ManifestRecord), args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
