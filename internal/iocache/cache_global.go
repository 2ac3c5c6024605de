package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// fitCacheTable is the name of the table for fit caching.
const fitCacheTable = "brentcp_fit_cache"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetCacheDBFilePath returns the path to the SQLite DB file for the fit cache.
func GetCacheDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetResultsDBFilePath returns the path to the SQLite DB file for results.
func GetResultsDBFilePath() string {
	return contract.GetResultsDBFilePath()
}

// InitStores initializes the global manager with the fit cache and the result store.
// An empty backend leaves the corresponding store unset.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, resultsBackend schema.DatabaseBackend, resultsConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var fitStore contract.CacheStore
		if cacheBackend != "" {
			fitStore, err = NewCacheStore(fitCacheTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize fit caching: %w", err)
				return
			}
		}

		var resultStore contract.ResultStore
		if resultsBackend != "" {
			resultStore, err = NewResultStore(resultsBackend, resultsConnStr)
			if err != nil {
				if fitStore != nil {
					_ = fitStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize result store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.fits = fitStore
		Manager.results = resultStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.fits != nil {
			_ = Manager.fits.Close()
		}
		if Manager.results != nil {
			_ = Manager.results.Close()
		}
	})
}

// ClearCache clears the fit cache for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the cache table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, fitCacheTable)
}

// ClearResults clears stored runs for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the result tables.
func ClearResults(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearStore(backend, dbFilePath, connStr, resultTables...)
}

func clearStore(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, tables...)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}
