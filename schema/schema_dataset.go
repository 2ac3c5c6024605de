package schema

import "time"

// Dataset is a prepared observation series with its aligned covariate matrix.
// Covariates is row major: Covariates[t][j] is covariate j at observation t.
type Dataset struct {
	Dates          []time.Time `json:"dates"`
	Target         []float64   `json:"target"`
	TargetName     string      `json:"target_name"`
	Covariates     [][]float64 `json:"covariates,omitempty"`
	CovariateNames []string    `json:"covariate_names,omitempty"`
	DroppedRows    int         `json:"dropped_rows"`
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Target)
}

// NumCovariates returns the number of covariate columns.
func (d *Dataset) NumCovariates() int {
	if d == nil {
		return 0
	}
	return len(d.CovariateNames)
}

// Column copies covariate column j.
func (d *Dataset) Column(j int) []float64 {
	col := make([]float64, len(d.Covariates))
	for t, row := range d.Covariates {
		col[t] = row[j]
	}
	return col
}

// DateAt returns the date of observation i formatted with DateLayout.
func (d *Dataset) DateAt(i int) string {
	if i < 0 || i >= len(d.Dates) {
		return ""
	}
	return d.Dates[i].Format(DateLayout)
}

// RawObservation is one unprepared row as read from a data provider.
type RawObservation struct {
	Date       time.Time
	Target     float64
	Covariates []float64
}
