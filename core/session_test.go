package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/oilshock/brentcp/core/model"
	"github.com/oilshock/brentcp/core/sampler"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/internal/iocache"
	"github.com/oilshock/brentcp/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, smp model.Sampler, cache contract.CacheStore) *Session {
	t.Helper()
	s, err := NewSession(stepDataset(21, 10), testConfig(), smp, cache, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewSession_Errors(t *testing.T) {
	cfg := testConfig()

	_, err := NewSession(&schema.Dataset{}, cfg, &sampler.Stub{}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = NewSession(stepDataset(21, 10), cfg, nil, nil, zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrInvalidOptions)

	cfg.Sample.Chains = 0
	_, err = NewSession(stepDataset(21, 10), cfg, &sampler.Stub{}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, model.ErrInvalidOptions)
}

func TestSession_RunAndDiagnose(t *testing.T) {
	stub := &sampler.Stub{}
	s := newTestSession(t, stub, nil)
	ctx := context.Background()

	assert.Nil(t, s.Fit(schema.BasicKind))
	_, err := s.Diagnose(schema.BasicKind)
	assert.ErrorIs(t, err, ErrMissingFit)

	basic, err := s.RunBasic(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.BasicKind, basic.Kind)
	assert.Equal(t, 1, basic.NChangepoints)
	assert.Len(t, basic.Fingerprint, 64)
	assert.Same(t, basic, s.Fit(schema.BasicKind))
	assert.Equal(t, model.Fitted, s.Model(schema.BasicKind).State())

	_, err = s.Compare()
	assert.ErrorIs(t, err, ErrMissingFit)

	report, err := s.Diagnose(schema.BasicKind)
	require.NoError(t, err)
	assert.Equal(t, schema.BasicModelKey, report.Model)
	assert.Nil(t, report.Comparison)
	assert.Equal(t, model.Diagnosed, s.Model(schema.BasicKind).State())

	event, err := s.RunEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Noise"}, event.CovariateNames)
	assert.NotEqual(t, basic.Fingerprint, event.Fingerprint)

	report, err = s.Diagnose(schema.EventKind)
	require.NoError(t, err)
	require.NotNil(t, report.Comparison)
	assert.Equal(t, 2, stub.Calls())
}

func TestSession_RunAll(t *testing.T) {
	stub := &sampler.Stub{}
	s := newTestSession(t, stub, nil)

	results, err := s.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls())
	assert.Len(t, results.Models, 2)
	assert.Same(t, s.Dataset(), results.Dataset)
	assert.NotNil(t, results.Fit(schema.BasicModelKey))
	assert.NotNil(t, results.Fit(schema.EventModelKey))

	// Later runs do not alter a returned snapshot.
	_, err = s.RunBasic(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, s.Fit(schema.BasicKind), results.Fit(schema.BasicModelKey))

	cmp, err := s.Compare()
	require.NoError(t, err)
	assert.Contains(t, []schema.ModelKey{schema.BasicModelKey, schema.EventModelKey}, cmp.Preferred)
}

func TestSession_RunErrors(t *testing.T) {
	boom := errors.New("boom")
	s := newTestSession(t, &sampler.Stub{Err: boom}, nil)
	_, err := s.RunAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s.Fit(schema.BasicKind))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = newTestSession(t, &sampler.Stub{}, nil)
	_, err = s.RunEvent(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	ds := stepDataset(21, 10)
	opts := testSampleOptions

	key, err := Fingerprint(ds, schema.BasicKind, 1, opts)
	require.NoError(t, err)
	again, err := Fingerprint(ds, schema.BasicKind, 1, opts)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	workers := opts
	workers.Workers = 8
	same, err := Fingerprint(ds, schema.BasicKind, 1, workers)
	require.NoError(t, err)
	assert.Equal(t, key, same, "worker count does not change a fit")

	seeded := opts
	seeded.Seed++
	changes := map[string]func() (string, error){
		"kind":          func() (string, error) { return Fingerprint(ds, schema.EventKind, 1, opts) },
		"changepoints":  func() (string, error) { return Fingerprint(ds, schema.BasicKind, 2, opts) },
		"seed":          func() (string, error) { return Fingerprint(ds, schema.BasicKind, 1, seeded) },
		"observations":  func() (string, error) { return Fingerprint(stepDataset(22, 10), schema.BasicKind, 1, opts) },
		"shifted input": func() (string, error) { return Fingerprint(stepDataset(21, 11), schema.BasicKind, 1, opts) },
	}
	for name, fn := range changes {
		other, err := fn()
		require.NoError(t, err)
		assert.NotEqual(t, key, other, name)
	}
}

func TestSession_FitCache(t *testing.T) {
	ctx := context.Background()

	// A miss samples and stores the fit.
	var payload []byte
	missStore := &iocache.MockCacheStore{}
	missStore.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("not found"))
	missStore.On("Set", mock.Anything, mock.Anything, currentCacheVersion, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(1).([]byte) }).
		Return(nil)

	stub := &sampler.Stub{}
	first, err := newTestSession(t, stub, missStore).RunEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.Calls())
	missStore.AssertCalled(t, "Set", first.Fingerprint, mock.Anything, currentCacheVersion, mock.Anything)
	require.NotEmpty(t, payload)

	// A hit restores the stored fit without sampling.
	hitStore := &iocache.MockCacheStore{}
	hitStore.On("Get", first.Fingerprint).Return(payload, currentCacheVersion, time.Now().Unix(), nil)
	stub = &sampler.Stub{}
	s := newTestSession(t, stub, hitStore)
	second, err := s.RunEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stub.Calls())
	assert.Equal(t, first.Posterior, second.Posterior)
	assert.Equal(t, first.WAIC, second.WAIC)
	assert.Equal(t, model.Fitted, s.Model(schema.EventKind).State())
	hitStore.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_FitCacheRejects(t *testing.T) {
	ds := stepDataset(21, 10)
	basic := pointFit(t, schema.BasicKind, ds, testSampleOptions, stepPoint(schema.BasicKind, 0.01))
	basicPayload, err := contract.EncodePayload(basic)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
		version int
	}{
		{name: "stale version", payload: basicPayload, version: currentCacheVersion + 1},
		{name: "corrupt payload", payload: []byte("not zstd"), version: currentCacheVersion},
		{name: "fit of another kind", payload: basicPayload, version: currentCacheVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", mock.Anything).Return(tt.payload, tt.version, int64(0), nil)
			store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

			stub := &sampler.Stub{}
			fit, err := newTestSession(t, stub, store).RunEvent(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, stub.Calls())
			assert.Equal(t, schema.EventKind, fit.Kind)
			store.AssertNumberOfCalls(t, "Set", 1)
		})
	}
}

func TestSession_CacheWriteFailure(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(nil, 0, int64(0), errors.New("not found"))
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	fit, err := newTestSession(t, &sampler.Stub{}, store).RunBasic(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, fit)
}

func TestLoadResults(t *testing.T) {
	ds := stepDataset(21, 10)
	results := &schema.Results{
		RunID:     3,
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Dataset:   ds,
		Models: map[schema.ModelKey]*schema.FitResult{
			schema.BasicModelKey: pointFit(t, schema.BasicKind, ds, testSampleOptions, stepPoint(schema.BasicKind, 0.01)),
		},
	}

	t.Run("results file", func(t *testing.T) {
		cfg := testConfig()
		cfg.ResultsFile = filepath.Join(t.TempDir(), "results.json")
		require.NoError(t, contract.WriteResultsFile(cfg.ResultsFile, results))

		got, err := LoadResults(cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.RunID)
		assert.Equal(t, ds.Target, got.Dataset.Target)
		assert.NotNil(t, got.Fit(schema.BasicModelKey))
	})

	t.Run("no manager", func(t *testing.T) {
		_, err := LoadResults(testConfig(), nil)
		assert.ErrorIs(t, err, contract.ErrNoResults)
	})

	t.Run("no result store", func(t *testing.T) {
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(nil)
		_, err := LoadResults(testConfig(), mgr)
		assert.ErrorIs(t, err, contract.ErrNoResults)
		mgr.AssertExpectations(t)
	})

	t.Run("selected run", func(t *testing.T) {
		store := &iocache.MockResultStore{}
		store.On("LoadResults", int64(3)).Return(results, nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetResultStore").Return(store)

		cfg := testConfig()
		cfg.RunID = 3
		got, err := LoadResults(cfg, mgr)
		require.NoError(t, err)
		assert.Same(t, results, got)
		store.AssertExpectations(t)
	})
}

func TestRecordRun(t *testing.T) {
	ds := stepDataset(21, 10)
	basic := pointFit(t, schema.BasicKind, ds, testSampleOptions, stepPoint(schema.BasicKind, 0.01))
	event := pointFit(t, schema.EventKind, ds, testSampleOptions, stepPoint(schema.EventKind, 0.01))
	results := &schema.Results{
		Dataset: ds,
		Models: map[schema.ModelKey]*schema.FitResult{
			schema.BasicModelKey: basic,
			schema.EventModelKey: event,
		},
	}
	cfg := testConfig()
	start := time.Now()

	t.Run("records both fits and the comparison", func(t *testing.T) {
		store := &iocache.MockResultStore{}
		store.On("BeginRun", start, mock.Anything, ds).Return(int64(7), nil)
		store.On("RecordFit", int64(7), basic, mock.Anything, mock.Anything).Return(nil)
		store.On("RecordFit", int64(7), event, mock.Anything, mock.Anything).Return(nil)
		store.On("EndRun", int64(7), mock.Anything, mock.MatchedBy(func(cmp *schema.Comparison) bool {
			return cmp != nil
		})).Return(nil)

		runID, err := recordRun(store, cfg, results, start)
		require.NoError(t, err)
		assert.Equal(t, int64(7), runID)
		store.AssertExpectations(t)
	})

	t.Run("begin failure", func(t *testing.T) {
		store := &iocache.MockResultStore{}
		store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))

		runID, err := recordRun(store, cfg, results, start)
		assert.ErrorContains(t, err, "failed to begin run")
		assert.Zero(t, runID)
		store.AssertNotCalled(t, "RecordFit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("record failure keeps the run id", func(t *testing.T) {
		store := &iocache.MockResultStore{}
		store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(9), nil)
		store.On("RecordFit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("constraint"))

		runID, err := recordRun(store, cfg, results, start)
		assert.ErrorContains(t, err, "failed to record basic_model")
		assert.Equal(t, int64(9), runID)
		store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
	})
}
