// Package parquet exports stored runs, fits and parameter summaries to
// Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/oilshock/brentcp/schema"
	"github.com/parquet-go/parquet-go"
)

// Run is one inference run over a prepared dataset.
// This struct maps to the brentcp_runs database table.
type Run struct {
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed; nil for an unfinished run
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// Observations is the length of the prepared series
	Observations int32 `parquet:"observations,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters
	ConfigParams *string `parquet:"config_params,optional,snappy"`

	// PreferredModel is the WAIC winner, set when both fits completed
	PreferredModel *string `parquet:"preferred_model,optional,snappy"`

	WAICDifference *float64 `parquet:"waic_difference,optional,snappy"`
}

// Fit is the headline of one model fit within a run.
// This struct maps to the brentcp_fits database table.
type Fit struct {
	RunID         int64     `parquet:"run_id,snappy"`
	ModelKey      string    `parquet:"model_key,dict,snappy"`
	NChangepoints int32     `parquet:"n_changepoints,snappy"`
	Draws         int32     `parquet:"draws,snappy"`
	Tune          int32     `parquet:"tune,snappy"`
	Chains        int32     `parquet:"chains,snappy"`
	WAIC          float64   `parquet:"waic,snappy"`
	WAICSE        float64   `parquet:"waic_se,snappy"`
	PWAIC         float64   `parquet:"p_waic,snappy"`
	RHatMax       *float64  `parquet:"r_hat_max,optional,snappy"`
	ESSMin        *float64  `parquet:"ess_min,optional,snappy"`
	Converged     bool      `parquet:"converged,snappy"`
	FittedAt      time.Time `parquet:"fitted_at,snappy"`
}

// Parameter is the posterior summary of one parameter dimension.
// This struct maps to the brentcp_parameters database table.
type Parameter struct {
	RunID     int64   `parquet:"run_id,snappy"`
	ModelKey  string  `parquet:"model_key,dict,snappy"`
	Parameter string  `parquet:"parameter,snappy"`
	Mean      float64 `parquet:"mean,snappy"`
	SD        float64 `parquet:"sd,snappy"`
	HDILow    float64 `parquet:"hdi_low,snappy"`
	HDIHigh   float64 `parquet:"hdi_high,snappy"`

	// RHat and ESS are null when undefined for the parameter
	RHat *float64 `parquet:"r_hat,optional,snappy"`
	ESS  *float64 `parquet:"ess,optional,snappy"`
}

// writeRows writes rows to a new Parquet file whose schema is inferred from T.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteFitsParquet writes fits to a Parquet file.
func WriteFitsParquet(data []Fit, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteParametersParquet writes parameter summaries to a Parquet file.
func WriteParametersParquet(data []Parameter, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			Observations:   record.Observations,
			ConfigParams:   record.ConfigParams,
			PreferredModel: record.PreferredModel,
			WAICDifference: record.WAICDifference,
		}
	}
	return result
}

// ConvertFitRecords converts schema.FitRecord to Fit for Parquet export.
func ConvertFitRecords(records []schema.FitRecord) []Fit {
	result := make([]Fit, len(records))
	for i, r := range records {
		result[i] = Fit{
			RunID:         r.RunID,
			ModelKey:      r.ModelKey,
			NChangepoints: r.NChangepoints,
			Draws:         r.Draws,
			Tune:          r.Tune,
			Chains:        r.Chains,
			WAIC:          r.WAIC,
			WAICSE:        r.WAICSE,
			PWAIC:         r.PWAIC,
			RHatMax:       r.RHatMax,
			ESSMin:        r.ESSMin,
			Converged:     r.Converged,
			FittedAt:      r.FittedAt,
		}
	}
	return result
}

// ConvertParameterRecords converts schema.ParameterRecord to Parameter for Parquet export.
func ConvertParameterRecords(records []schema.ParameterRecord) []Parameter {
	result := make([]Parameter, len(records))
	for i, r := range records {
		result[i] = Parameter{
			RunID:     r.RunID,
			ModelKey:  r.ModelKey,
			Parameter: r.Parameter,
			Mean:      r.Mean,
			SD:        r.SD,
			HDILow:    r.HDILow,
			HDIHigh:   r.HDIHigh,
			RHat:      r.RHat,
			ESS:       r.ESS,
		}
	}
	return result
}
