package iocache

import (
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetFitStore implements the CacheManager interface.
func (m *MockCacheManager) GetFitStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetResultStore implements the CacheManager interface.
func (m *MockCacheManager) GetResultStore() contract.ResultStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.ResultStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) ([]byte, int, int64, error) {
	args := m.Called(key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(key string, data []byte, version int, ts int64) error {
	args := m.Called(key, data, version, ts)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockResultStore is a mock implementation of ResultStore for testing.
type MockResultStore struct {
	mock.Mock
}

var _ contract.ResultStore = &MockResultStore{} // Compile-time check

// BeginRun implements the ResultStore interface.
func (m *MockResultStore) BeginRun(startTime time.Time, configParams map[string]any, dataset *schema.Dataset) (int64, error) {
	args := m.Called(startTime, configParams, dataset)
	return args.Get(0).(int64), args.Error(1)
}

// RecordFit implements the ResultStore interface.
func (m *MockResultStore) RecordFit(runID int64, fit *schema.FitResult, convergence schema.ConvergenceReport, summary []schema.ParameterSummary) error {
	args := m.Called(runID, fit, convergence, summary)
	return args.Error(0)
}

// EndRun implements the ResultStore interface.
func (m *MockResultStore) EndRun(runID int64, endTime time.Time, comparison *schema.Comparison) error {
	args := m.Called(runID, endTime, comparison)
	return args.Error(0)
}

// LoadResults implements the ResultStore interface.
func (m *MockResultStore) LoadResults(runID int64) (*schema.Results, error) {
	args := m.Called(runID)
	results, _ := args.Get(0).(*schema.Results)
	return results, args.Error(1)
}

// GetStatus implements the ResultStore interface.
func (m *MockResultStore) GetStatus() (schema.ResultStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.ResultStatus), args.Error(1)
}

// GetAllRuns implements the ResultStore interface.
func (m *MockResultStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllFits implements the ResultStore interface.
func (m *MockResultStore) GetAllFits() ([]schema.FitRecord, error) {
	args := m.Called()
	fits, _ := args.Get(0).([]schema.FitRecord)
	return fits, args.Error(1)
}

// GetAllParameters implements the ResultStore interface.
func (m *MockResultStore) GetAllParameters() ([]schema.ParameterRecord, error) {
	args := m.Called()
	params, _ := args.Get(0).([]schema.ParameterRecord)
	return params, args.Error(1)
}

// Close implements the ResultStore interface.
func (m *MockResultStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
