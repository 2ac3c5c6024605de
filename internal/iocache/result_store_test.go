package iocache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResultStore(t *testing.T) contract.ResultStore {
	t.Helper()
	store, err := NewResultStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDataset() *schema.Dataset {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := &schema.Dataset{TargetName: "Returns", CovariateNames: []string{"War_Event_30d"}}
	for i := range 6 {
		ds.Dates = append(ds.Dates, start.AddDate(0, 0, i))
		ds.Target = append(ds.Target, float64(i)*0.01-0.02)
		ds.Covariates = append(ds.Covariates, []float64{float64(i % 2)})
	}
	return ds
}

func testFit(kind schema.ModelKind) *schema.FitResult {
	return &schema.FitResult{
		Kind:          kind,
		NChangepoints: 1,
		Options:       schema.SampleOptions{Draws: 2, Tune: 1, Chains: 1, Seed: 7},
		Posterior: &schema.Posterior{
			Chains: 1,
			Draws:  2,
			Variables: []schema.Variable{
				{Name: schema.VarChangepoints, Dim: 1, Deterministic: true, Values: [][][]float64{{{2}, {3}}}},
			},
		},
		WAIC:     schema.WAIC{WAIC: -10.5, SE: 1.25, PWAIC: 2.5, LPPD: 7.75},
		FittedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func ptr(v float64) *float64 { return &v }

func TestResultStoreLifecycle(t *testing.T) {
	store := newTestResultStore(t)
	dataset := testDataset()
	start := time.Date(2024, 6, 1, 11, 59, 0, 0, time.UTC)

	runID, err := store.BeginRun(start, map[string]any{"n-changepoints": 1}, dataset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	basic := testFit(schema.BasicKind)
	event := testFit(schema.EventKind)
	event.CovariateNames = dataset.CovariateNames
	event.WAIC.WAIC = -14.5

	summary := []schema.ParameterSummary{
		{Name: "changepoints_sorted[0]", Mean: 2.5, SD: 0.5, HDILow: 2, HDIHigh: 3, RHat: ptr(1.01), ESS: ptr(1.8)},
		{Name: "segment_means[0]", Mean: 0.1, SD: 0.02, HDILow: 0.06, HDIHigh: 0.14},
	}
	conv := schema.ConvergenceReport{RHatMax: ptr(1.01), ESSMin: ptr(1.8), Converged: true}
	require.NoError(t, store.RecordFit(runID, basic, conv, summary))
	require.NoError(t, store.RecordFit(runID, event, schema.ConvergenceReport{}, nil))

	comparison := &schema.Comparison{Preferred: schema.EventModelKey, Difference: 4}
	require.NoError(t, store.EndRun(runID, start.Add(90*time.Second), comparison))

	t.Run("load by id", func(t *testing.T) {
		results, err := store.LoadResults(runID)
		require.NoError(t, err)
		assert.Equal(t, runID, results.RunID)
		assert.True(t, start.Equal(results.CreatedAt))
		assert.Equal(t, dataset, results.Dataset)
		require.Len(t, results.Models, 2)
		assert.Equal(t, basic, results.Fit(schema.BasicModelKey))
		assert.Equal(t, event, results.Fit(schema.EventModelKey))
	})

	t.Run("load latest", func(t *testing.T) {
		results, err := store.LoadResults(0)
		require.NoError(t, err)
		assert.Equal(t, runID, results.RunID)
	})

	t.Run("runs", func(t *testing.T) {
		runs, err := store.GetAllRuns()
		require.NoError(t, err)
		require.Len(t, runs, 1)
		run := runs[0]
		assert.Equal(t, int32(6), run.Observations)
		require.NotNil(t, run.EndTime)
		require.NotNil(t, run.RunDurationMs)
		assert.Equal(t, int32(90000), *run.RunDurationMs)
		require.NotNil(t, run.PreferredModel)
		assert.Equal(t, "event_model", *run.PreferredModel)
		require.NotNil(t, run.WAICDifference)
		assert.InDelta(t, 4.0, *run.WAICDifference, 1e-12)
		require.NotNil(t, run.ConfigParams)
		assert.JSONEq(t, `{"n-changepoints":1}`, *run.ConfigParams)
	})

	t.Run("fits", func(t *testing.T) {
		fits, err := store.GetAllFits()
		require.NoError(t, err)
		require.Len(t, fits, 2)
		assert.Equal(t, "basic_model", fits[0].ModelKey)
		assert.True(t, fits[0].Converged)
		require.NotNil(t, fits[0].RHatMax)
		assert.InDelta(t, 1.01, *fits[0].RHatMax, 1e-12)
		assert.Equal(t, "event_model", fits[1].ModelKey)
		assert.False(t, fits[1].Converged)
		assert.Nil(t, fits[1].RHatMax)
		assert.InDelta(t, -14.5, fits[1].WAIC, 1e-12)
		assert.True(t, basic.FittedAt.Equal(fits[0].FittedAt))
	})

	t.Run("parameters", func(t *testing.T) {
		params, err := store.GetAllParameters()
		require.NoError(t, err)
		require.Len(t, params, 2)
		assert.Equal(t, "changepoints_sorted[0]", params[0].Parameter)
		require.NotNil(t, params[0].RHat)
		assert.Nil(t, params[1].RHat)
		assert.Nil(t, params[1].ESS)
	})

	t.Run("status", func(t *testing.T) {
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, 1, status.TotalRuns)
		assert.Equal(t, 2, status.TotalFits)
		assert.Equal(t, runID, status.LastRunID)
		assert.True(t, start.Equal(status.LastRunTime))
		assert.Equal(t, int64(2), status.TableSizes[parametersTable])
	})
}

func TestResultStoreRecordFitTwice(t *testing.T) {
	store := newTestResultStore(t)
	runID, err := store.BeginRun(time.Now(), nil, testDataset())
	require.NoError(t, err)

	require.NoError(t, store.RecordFit(runID, testFit(schema.BasicKind), schema.ConvergenceReport{}, nil))
	err = store.RecordFit(runID, testFit(schema.BasicKind), schema.ConvergenceReport{}, nil)
	assert.Error(t, err, "a run holds one fit per model")

	assert.Error(t, store.RecordFit(runID, nil, schema.ConvergenceReport{}, nil))
}

func TestResultStoreLoadErrors(t *testing.T) {
	store := newTestResultStore(t)

	_, err := store.LoadResults(-1)
	assert.ErrorIs(t, err, contract.ErrNoResults)

	_, err = store.LoadResults(42)
	assert.ErrorIs(t, err, contract.ErrNoResults)

	runID, err := store.BeginRun(time.Now(), nil, testDataset())
	require.NoError(t, err)
	_, err = store.LoadResults(runID)
	assert.True(t, errors.Is(err, contract.ErrNoResults), "a run without fits has no results")

	assert.Error(t, store.EndRun(runID+1, time.Now(), nil))
}

func TestResultStoreEmptyStatus(t *testing.T) {
	store := newTestResultStore(t)
	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Zero(t, status.TotalRuns)
	assert.Len(t, status.TableSizes, 3)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNoneResultStore(t *testing.T) {
	store, err := NewResultStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), nil, testDataset())
	require.NoError(t, err)
	assert.Zero(t, runID)
	assert.NoError(t, store.RecordFit(runID, testFit(schema.BasicKind), schema.ConvergenceReport{}, nil))
	assert.NoError(t, store.EndRun(runID, time.Now(), nil))

	_, err = store.LoadResults(0)
	assert.ErrorIs(t, err, contract.ErrNoResults)

	fits, err := store.GetAllFits()
	require.NoError(t, err)
	assert.Nil(t, fits)
	assert.NoError(t, store.Close())
}

func TestGetCreateResultTableQuery(t *testing.T) {
	tests := []struct {
		backend      schema.DatabaseBackend
		table        string
		wantContains []string
	}{
		{schema.SQLiteBackend, runsTable, []string{"AUTOINCREMENT", "dataset_payload BLOB"}},
		{schema.MySQLBackend, runsTable, []string{"AUTO_INCREMENT", "dataset_payload LONGBLOB", "`brentcp_runs`"}},
		{schema.PostgreSQLBackend, runsTable, []string{"BIGSERIAL", "dataset_payload BYTEA", "TIMESTAMPTZ"}},
		{schema.MySQLBackend, fitsTable, []string{"payload LONGBLOB", "PRIMARY KEY (run_id, model_key)"}},
		{schema.PostgreSQLBackend, parametersTable, []string{"PRIMARY KEY (run_id, model_key, parameter)", "DOUBLE PRECISION"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.table, func(t *testing.T) {
			query := getCreateResultTableQuery(tt.table, tt.backend)
			for _, want := range tt.wantContains {
				assert.Contains(t, query, want)
			}
		})
	}
}

func TestExecuteResultsExport(t *testing.T) {
	t.Run("requires output file", func(t *testing.T) {
		err := ExecuteResultsExport(newTestResultStore(t), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--output-file")
	})

	t.Run("requires data", func(t *testing.T) {
		err := ExecuteResultsExport(newTestResultStore(t), filepath.Join(t.TempDir(), "out"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no result data")
	})

	t.Run("writes three files", func(t *testing.T) {
		store := newTestResultStore(t)
		runID, err := store.BeginRun(time.Now(), nil, testDataset())
		require.NoError(t, err)
		require.NoError(t, store.RecordFit(runID, testFit(schema.BasicKind), schema.ConvergenceReport{},
			[]schema.ParameterSummary{{Name: "segment_means[0]"}}))
		require.NoError(t, store.EndRun(runID, time.Now(), nil))

		prefix := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExecuteResultsExport(store, prefix))
		for _, suffix := range []string{".runs.parquet", ".fits.parquet", ".parameters.parquet"} {
			assert.FileExists(t, prefix+suffix)
		}
	})

	t.Run("store errors propagate", func(t *testing.T) {
		store := &MockResultStore{}
		store.On("GetStatus").Return(schema.ResultStatus{Backend: "mock", TotalRuns: 1}, nil)
		store.On("GetAllRuns").Return(nil, errors.New("boom"))
		err := ExecuteResultsExport(store, filepath.Join(t.TempDir(), "out"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to retrieve runs")
		store.AssertExpectations(t)
	})
}
