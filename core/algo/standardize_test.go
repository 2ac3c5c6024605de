package algo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestStandardize(t *testing.T) {
	tests := []struct {
		name string
		col  []float64
	}{
		{"counts", []float64{0, 1, 1, 2, 5, 8, 13, 0, 0, 3}},
		{"large offset", []float64{1e6 + 1, 1e6 + 2, 1e6 + 4, 1e6 + 8}},
		{"binary", []float64{0, 1, 0, 0, 1, 0, 0, 0}},
		{"days since event", []float64{365, 12, 3, 0, 44, 90, 180}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := Standardize(tt.col)
			mean, std := stat.PopMeanStdDev(z, nil)
			assert.InDelta(t, 0, mean, 1e-9)
			assert.InDelta(t, 1, std, 1e-9)
		})
	}

	t.Run("constant column becomes zeros", func(t *testing.T) {
		assert.Equal(t, []float64{0, 0, 0}, Standardize([]float64{7, 7, 7}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, Standardize(nil))
	})
}

func TestStandardizeColumns(t *testing.T) {
	rows := [][]float64{{1, 10, 3}, {2, 20, 3}, {3, 60, 3}, {6, 10, 3}}
	StandardizeColumns(rows)

	for j := range 2 {
		col := []float64{rows[0][j], rows[1][j], rows[2][j], rows[3][j]}
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, std, 1e-9)
	}
	for _, row := range rows {
		assert.Equal(t, 0.0, row[2])
	}
}

func TestCompleteRows(t *testing.T) {
	nan := math.NaN()
	target := []float64{0.1, nan, 0.3, 0.4, 0.5}
	cov := [][]float64{{1, 2}, {1, 2}, {nan, 2}, {1, math.Inf(1)}, {1, 2}}

	assert.Equal(t, []int{0, 4}, CompleteRows(target, cov))
	assert.Equal(t, []int{0, 2, 3, 4}, CompleteRows(target, nil))
}
