package iocache

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobals lets a test run InitStores again.
func resetGlobals(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManager{}
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite backends", func(t *testing.T) {
		resetGlobals(t)
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		resultsPath := filepath.Join(dir, "results.db")

		require.NoError(t, InitStores(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, resultsPath))
		assert.NotNil(t, Manager.GetFitStore())
		assert.NotNil(t, Manager.GetResultStore())
		CloseStores()

		for _, p := range []string{cachePath, resultsPath} {
			_, err := os.Stat(p)
			assert.NoError(t, err, "database file %s should be created", p)
		}
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetGlobals(t)
		path := filepath.Join(t.TempDir(), "cache.db")

		assert.NoError(t, InitStores(schema.SQLiteBackend, path, "", ""))
		assert.NoError(t, InitStores(schema.SQLiteBackend, path, "", ""))
		assert.Nil(t, Manager.GetResultStore())

		CloseStores()
		CloseStores()
	})

	t.Run("none backend", func(t *testing.T) {
		resetGlobals(t)
		require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
		require.NotNil(t, Manager.GetFitStore())
		status, err := Manager.GetResultStore().GetStatus()
		require.NoError(t, err)
		assert.False(t, status.Connected)
		CloseStores()
	})

	t.Run("invalid backend", func(t *testing.T) {
		resetGlobals(t)
		err := InitStores("redis", "", "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize fit caching")
	})
}

func TestNoneBackendCacheStore(t *testing.T) {
	store, err := NewCacheStore("test_table", schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("key")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("key", []byte("value"), 1, 123456789))
	_, _, _, err = store.Get("key")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"simple", "brentcp_fit_cache", false},
		{"numbers", "fits_123", false},
		{"leading underscore", "_fits", false},
		{"mixed case", "FitCache_2", false},
		{"empty", "", true},
		{"starts with number", "1fits", true},
		{"dash", "fit-cache", true},
		{"space", "fit cache", true},
		{"dot", "fit.cache", true},
		{"injection", "fits'; DROP TABLE runs; --", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, `"fits"`},
		{schema.MySQLBackend, "`fits`"},
		{schema.PostgreSQLBackend, `"fits"`},
		{schema.NoneBackend, `"fits"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTableName("fits", tt.backend))
		})
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE b = ? AND c = ?"
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
	assert.Equal(t, query, rebind(query, schema.MySQLBackend))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", rebind(query, schema.PostgreSQLBackend))
}

func TestTimeScanner(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	tests := []struct {
		name      string
		src       any
		wantValid bool
		wantErr   bool
	}{
		{"nil", nil, false, false},
		{"native", want.In(time.FixedZone("X", 3600)), true, false},
		{"string", want.Format(time.RFC3339Nano), true, false},
		{"bytes", []byte(want.Format(time.RFC3339Nano)), true, false},
		{"garbage", "yesterday", false, true},
		{"unsupported", 42, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			s := scanTime(&got)
			err := s.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, s.valid)
			if tt.wantValid {
				assert.True(t, want.Equal(got))
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestGetUpsertQuery(t *testing.T) {
	tests := []struct {
		backend      schema.DatabaseBackend
		wantContains []string
	}{
		{schema.SQLiteBackend, []string{"INSERT OR REPLACE", `"fits"`}},
		{schema.MySQLBackend, []string{"ON DUPLICATE KEY UPDATE", "`fits`", "AS new"}},
		{schema.PostgreSQLBackend, []string{"ON CONFLICT (cache_key) DO UPDATE SET", `"fits"`, "$4"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			store := &FitCacheStore{backend: tt.backend, tableName: "fits"}
			query := store.getUpsertQuery()
			for _, want := range tt.wantContains {
				assert.Contains(t, query, want)
			}
		})
	}
}

func TestGetCreateCacheTableQuery(t *testing.T) {
	assert.Contains(t, getCreateCacheTableQuery("fits", schema.MySQLBackend), "LONGBLOB")
	assert.Contains(t, getCreateCacheTableQuery("fits", schema.PostgreSQLBackend), "BYTEA")
	assert.Contains(t, getCreateCacheTableQuery("fits", schema.SQLiteBackend), "BLOB")
}

func TestSQLiteCacheStore(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		store, err := NewCacheStore("fits", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		payload := bytes.Repeat([]byte{0xab}, 200_000)
		require.NoError(t, store.Set("fp", payload, 3, 1234567890))

		value, version, ts, err := store.Get("fp")
		require.NoError(t, err)
		assert.Equal(t, payload, value)
		assert.Equal(t, 3, version)
		assert.Equal(t, int64(1234567890), ts)
	})

	t.Run("upsert", func(t *testing.T) {
		store, err := NewCacheStore("fits", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Set("fp", []byte("old"), 1, 1000))
		require.NoError(t, store.Set("fp", []byte("new"), 2, 2000))

		value, version, ts, err := store.Get("fp")
		require.NoError(t, err)
		assert.Equal(t, "new", string(value))
		assert.Equal(t, 2, version)
		assert.Equal(t, int64(2000), ts)
	})

	t.Run("missing key", func(t *testing.T) {
		store, err := NewCacheStore("fits", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, _, _, err = store.Get("missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("status", func(t *testing.T) {
		store, err := NewCacheStore("fits", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Zero(t, status.TotalEntries)

		require.NoError(t, store.Set("a", []byte("1"), 1, 1000))
		require.NoError(t, store.Set("b", []byte("2"), 1, 3000))
		status, err = store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, 2, status.TotalEntries)
		assert.Equal(t, int64(3000), status.LastEntryTime.Unix())
		assert.Equal(t, int64(1000), status.OldestEntryTime.Unix())
		assert.Positive(t, status.TableSizeBytes)
	})
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bad-name", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewCacheStore("fits", "redis", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestClearCache(t *testing.T) {
	t.Run("sqlite removes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(t.TempDir(), "nope.db"), ""))
	})

	t.Run("sqlite empty path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearResults(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, ClearResults("redis", "", ""))
	})
}

func TestStoreManagerConcurrency(t *testing.T) {
	mgr := &StoreManager{}
	store := &FitCacheStore{backend: schema.NoneBackend}
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				mgr.Lock()
				mgr.fits = store
				mgr.Unlock()
				return
			}
			_ = mgr.GetFitStore()
		}()
	}
	wg.Wait()
	assert.Same(t, store, mgr.GetFitStore())
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintResultStatus(&buf, schema.ResultStatus{
		Backend:     "sqlite",
		Connected:   true,
		TotalRuns:   2,
		LastRunID:   2,
		LastRunTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		TotalFits:   4,
		TableSizes:  map[string]int64{fitsTable: 4, runsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Run: 2024-01-02 03:04:05")
	assert.Contains(t, out, "Total Fits: 4")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(fitsTable)), bytes.Index(buf.Bytes(), []byte(runsTable)))
}
