// Package iocache is for persisting source records and run artifacts.
package iocache

import (
	"sync"

	"github.com/huangsam/reposcout/internal/contract"
)

// StoreManager holds the record store and the run store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	records      contract.RecordStore
	runs         contract.RunStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// GetRecordStore returns the RecordStore, or nil when records are disabled.
func (mgr *StoreManager) GetRecordStore() contract.RecordStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.records
}

// GetRunStore returns the RunStore, or nil when run tracking is disabled.
func (mgr *StoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
