package core

import (
	"math"
	"testing"
	"time"

	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func rawRows(values ...[3]float64) []schema.RawObservation {
	start := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]schema.RawObservation, len(values))
	for i, v := range values {
		rows[i] = schema.RawObservation{
			Date:       start.AddDate(0, 0, i),
			Target:     v[0],
			Covariates: []float64{v[1], v[2]},
		}
	}
	return rows
}

func TestPrepareDataset(t *testing.T) {
	nan := math.NaN()
	raw := rawRows(
		[3]float64{0.01, 1, 5},
		[3]float64{nan, 2, 5},
		[3]float64{-0.02, 3, 5},
		[3]float64{0.03, nan, 5},
		[3]float64{0.00, 5, 5},
		[3]float64{0.02, 7, math.Inf(1)},
	)

	ds, err := PrepareDataset(raw, "Returns", []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 3, ds.DroppedRows)
	assert.Equal(t, []float64{0.01, -0.02, 0.00}, ds.Target)
	assert.Equal(t, []string{"2022-02-01", "2022-02-03", "2022-02-05"}, []string{ds.DateAt(0), ds.DateAt(1), ds.DateAt(2)})
	assert.Equal(t, []string{"a", "b"}, ds.CovariateNames)

	col := ds.Column(0)
	mean, std := stat.PopMeanStdDev(col, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	// A constant column standardizes to zeros.
	assert.Equal(t, []float64{0, 0, 0}, ds.Column(1))

	// The raw rows are not modified.
	assert.Equal(t, []float64{1, 5}, raw[0].Covariates)
}

func TestPrepareDataset_NoCovariates(t *testing.T) {
	raw := []schema.RawObservation{
		{Date: time.Now(), Target: 0.01},
		{Date: time.Now(), Target: 0.02},
	}
	ds, err := PrepareDataset(raw, "Returns", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 0, ds.NumCovariates())
	assert.Nil(t, ds.Covariates)
}

func TestPrepareDataset_Errors(t *testing.T) {
	t.Run("no complete rows", func(t *testing.T) {
		raw := rawRows([3]float64{math.NaN(), 1, 1})
		_, err := PrepareDataset(raw, "Returns", []string{"a", "b"})
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := PrepareDataset(nil, "Returns", nil)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})

	t.Run("covariate count mismatch", func(t *testing.T) {
		raw := rawRows([3]float64{0.01, 1, 1})
		_, err := PrepareDataset(raw, "Returns", []string{"a"})
		assert.ErrorContains(t, err, "row 0 has 2 covariates, want 1")
	})
}
