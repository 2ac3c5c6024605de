package cmd

import (
	"fmt"
	"os"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/internal/iocache"
	"github.com/oilshock/brentcp/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resultsBackendFromConfig reads and checks the result store settings.
func resultsBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString("results-backend"))
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("results-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// resultsSetup loads minimal configuration needed for result store operations.
func resultsSetup() error {
	backend, connStr, err := resultsBackendFromConfig()
	if err != nil {
		return err
	}

	// No fit cache for results commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}

	cfg.ResultsBackend = backend
	cfg.ResultsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// resultsSetupWrapper wraps resultsSetup to provide PreRunE for results commands.
func resultsSetupWrapper(_ *cobra.Command, _ []string) error {
	return resultsSetup()
}

// resultsMigrateSetup resolves the backend without opening the store, so
// that migrations can run on a fresh database.
func resultsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := resultsBackendFromConfig()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetResultsDBFilePath()
	}
	cfg.ResultsBackend = backend
	cfg.ResultsDBConnect = connStr
	return nil
}

// resultsCmd focused on result store management.
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored runs and exports",
	Long: `Manage the result store that keeps every fitted run.

Each run stores:
- Run metadata (timestamp, configuration, duration, observations)
- One row per fit with its sampler settings, WAIC and convergence
- The posterior summary of every parameter

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show result store statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all stored runs
  migrate - Run database schema migrations

Examples:
  brentcp results status
  brentcp results export --output-file brentcp-data`,
}

// resultsClearCmd clears the stored runs.
var resultsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored runs",
	Long: `Delete all stored runs, fits and parameter summaries.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  brentcp results export --output-file backup
  brentcp results clear`,
	PreRunE: resultsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearResults(cfg.ResultsBackend, sqlitePath(cfg.ResultsDBConnect, contract.GetResultsDBFilePath()), cfg.ResultsDBConnect); err != nil {
			contract.LogFatal("Failed to clear results", err)
		}
		fmt.Println("Results cleared successfully.")
	},
}

// resultsStatusCmd shows result store status.
var resultsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display result store statistics and connection details",
	Long: `Show the backend, number of runs and fits, the latest run and the table sizes.

Examples:
  brentcp results status`,
	PreRunE: resultsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetResultStore()
		if store == nil {
			contract.LogFatal("Failed to get results status", fmt.Errorf("result store is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get results status", err)
		}
		iocache.PrintResultStatus(os.Stdout, status)
	},
}

// resultsExportCmd exports the stored runs to Parquet files.
var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored runs to Parquet for analytics",
	Long: `Export all stored runs to Parquet.

Writes three files sharing the --output-file prefix:
- <prefix>.runs.parquet
- <prefix>.fits.parquet
- <prefix>.parameters.parquet

Examples:
  brentcp results export --output-file brentcp-data
  duckdb -c "SELECT * FROM read_parquet('brentcp-data.fits.parquet')"`,
	PreRunE: resultsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteResultsExport(iocache.Manager.GetResultStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export results", err)
		}
	},
}

// resultsMigrateCmd runs database migrations for the result store.
var resultsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the result store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  brentcp results migrate
  brentcp results migrate --target-version 1
  brentcp results migrate --target-version 0`,
	PreRunE: resultsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateResults(cfg.ResultsBackend, cfg.ResultsDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
