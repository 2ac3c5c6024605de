package schema

import "time"

// CacheStatus represents the status of the fit cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// ResultStatus represents the status of the result store.
type ResultStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalFits     int              `json:"total_fits"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the brentcp_runs table.
type RunRecord struct {
	RunID          int64
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	Observations   int32
	ConfigParams   *string
	PreferredModel *string
	WAICDifference *float64
}

// FitRecord represents a row from the brentcp_fits table, without the payload.
type FitRecord struct {
	RunID         int64
	ModelKey      string
	NChangepoints int32
	Draws         int32
	Tune          int32
	Chains        int32
	WAIC          float64
	WAICSE        float64
	PWAIC         float64
	RHatMax       *float64
	ESSMin        *float64
	Converged     bool
	FittedAt      time.Time
}

// ParameterRecord represents a row from the brentcp_parameters table.
// RHat and ESS are nil when the statistic is undefined.
type ParameterRecord struct {
	RunID     int64
	ModelKey  string
	Parameter string
	Mean      float64
	SD        float64
	HDILow    float64
	HDIHigh   float64
	RHat      *float64
	ESS       *float64
}
