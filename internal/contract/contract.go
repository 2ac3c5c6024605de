// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/oilshock/brentcp/schema"
)

// CacheManager defines the interface for managing cache and result stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetFitStore() CacheStore
	GetResultStore() ResultStore
}

// CacheStore defines the interface for fit cache storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// ResultStore defines the interface for tracking inference runs and the fits they produced.
type ResultStore interface {
	// BeginRun creates a new run for the prepared dataset and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any, dataset *schema.Dataset) (int64, error)

	// RecordFit stores a fit, its convergence worst case and its per-parameter summary
	RecordFit(runID int64, fit *schema.FitResult, convergence schema.ConvergenceReport, summary []schema.ParameterSummary) error

	// EndRun updates the run with completion data. comparison may be nil
	// when only one model was fitted.
	EndRun(runID int64, endTime time.Time, comparison *schema.Comparison) error

	// LoadResults rebuilds the results of a run. A non-positive runID selects
	// the most recent run.
	LoadResults(runID int64) (*schema.Results, error)

	// GetStatus returns status information about the result store
	GetStatus() (schema.ResultStatus, error)

	// GetAllRuns returns every run record, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllFits returns every fit record without its payload
	GetAllFits() ([]schema.FitRecord, error)

	// GetAllParameters returns every stored parameter summary row
	GetAllParameters() ([]schema.ParameterRecord, error)

	// Close closes the underlying connection
	Close() error
}
