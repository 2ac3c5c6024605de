// Package iocache persists fits and run results in SQL databases.
package iocache

import (
	"sync"

	"github.com/oilshock/brentcp/internal/contract"
)

// StoreManager holds the fit cache and the result store.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	fits         contract.CacheStore
	results      contract.ResultStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetFitStore returns the fit CacheStore.
func (mgr *StoreManager) GetFitStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.fits
}

// GetResultStore returns the ResultStore.
func (mgr *StoreManager) GetResultStore() contract.ResultStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}
