package algo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Standardize rescales a column to zero mean and unit population standard
// deviation. A constant column becomes all zeros.
func Standardize(col []float64) []float64 {
	out := make([]float64, len(col))
	if len(col) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(col, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, x := range col {
		out[i] = (x - mean) / std
	}
	return out
}

// StandardizeColumns standardizes every column of a row-major matrix in place.
func StandardizeColumns(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	col := make([]float64, len(rows))
	for j := range rows[0] {
		for t, row := range rows {
			col[t] = row[j]
		}
		for t, z := range Standardize(col) {
			rows[t][j] = z
		}
	}
}

// CompleteRows returns the indices of rows whose target and covariates are all
// finite, in their original order.
func CompleteRows(target []float64, covariates [][]float64) []int {
	keep := make([]int, 0, len(target))
rows:
	for t, y := range target {
		if !finite(y) {
			continue
		}
		if t < len(covariates) {
			for _, x := range covariates[t] {
				if !finite(x) {
					continue rows
				}
			}
		}
		keep = append(keep, t)
	}
	return keep
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
