package iocache

import (
	"errors"
	"fmt"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/internal/parquet"
)

// ExecuteResultsExport writes every stored run, fit and parameter summary
// to three Parquet files sharing the outputFile prefix.
func ExecuteResultsExport(store contract.ResultStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("result store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get result status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no result data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total fits: %d\n", status.TotalFits)
	fmt.Printf("Total parameter rows: %d\n", status.TableSizes[parametersTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	fits, err := store.GetAllFits()
	if err != nil {
		return fmt.Errorf("failed to retrieve fits: %w", err)
	}
	params, err := store.GetAllParameters()
	if err != nil {
		return fmt.Errorf("failed to retrieve parameters: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	fitsFile := outputFile + ".fits.parquet"
	if err := parquet.WriteFitsParquet(parquet.ConvertFitRecords(fits), fitsFile); err != nil {
		return fmt.Errorf("failed to write fits: %w", err)
	}
	fmt.Printf("Exported %d fits to: %s\n", len(fits), fitsFile)

	paramsFile := outputFile + ".parameters.parquet"
	if err := parquet.WriteParametersParquet(parquet.ConvertParameterRecords(params), paramsFile); err != nil {
		return fmt.Errorf("failed to write parameters: %w", err)
	}
	fmt.Printf("Exported %d parameter rows to: %s\n", len(params), paramsFile)

	fmt.Println("\nExport complete! The Parquet files can be read with pandas, DuckDB or Spark.")
	return nil
}
