// Package cmd defines the command-line interface for brentcp.
package cmd

import (
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(changepointsCmd)
	rootCmd.AddCommand(coefficientsCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the results subcommands to the parent results command
	resultsCmd.AddCommand(resultsClearCmd)
	resultsCmd.AddCommand(resultsStatusCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("model", string(schema.EventKind), "Fit the reports read: basic or event")
	rootCmd.PersistentFlags().String("results-file", "", "Read and write results as a JSON file instead of the result store")
	rootCmd.PersistentFlags().Int64("run-id", 0, "Stored run the reports read (0 = latest)")
	rootCmd.PersistentFlags().Float64("hdi-prob", contract.DefaultHDIProb, "Credible mass of reported intervals")
	rootCmd.PersistentFlags().Float64("rhat-threshold", contract.DefaultRHatThreshold, "Largest R-hat counted as converged")
	rootCmd.PersistentFlags().Float64("min-ess", contract.DefaultMinESS, "Smallest effective sample size counted as converged")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: trace or debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", string(schema.ConsoleLog), "Log format: console or json")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Fit cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("results-backend", string(schema.SQLiteBackend), "Result store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("results-db-connect", "", "Database connection string for the result store (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("emoji", "no", "Enable emojis in output headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Command flags are bound to Viper in sharedSetup, once the invoked
	// command is known, since run and simulate share flag names.
	for _, c := range []*cobra.Command{runCmd, simulateCmd} {
		c.Flags().String("date-column", schema.DefaultDateColumn, "Name of the date column")
		c.Flags().String("target-column", schema.DefaultTargetColumn, "Name of the returns column")
		c.Flags().String("event-columns", "", "Comma-separated event covariate columns (default: the event feature set)")
		c.Flags().Uint64("seed", contract.DefaultSeed, "Random seed")
	}

	// Flags of runCmd
	runCmd.Flags().IntP("n-changepoints", "k", contract.DefaultChangepoints, "Number of change points to fit")
	runCmd.Flags().Int("samples", contract.DefaultDraws, "Posterior draws per chain")
	runCmd.Flags().Int("tune", contract.DefaultTune, "Tuning iterations per chain")
	runCmd.Flags().Int("chains", contract.DefaultChains, "Number of independent chains")
	runCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of chains sampled at the same time")

	// Flags of diagnosticsCmd
	diagnosticsCmd.Flags().Int("ppc-draws", contract.DefaultPPCDraws, "Posterior predictive replicates")

	// Flags of simulateCmd
	simulateCmd.Flags().Int("observations", contract.DefaultSimObservations, "Number of simulated trading days")
	simulateCmd.Flags().String("breaks", "", "Comma-separated indices where the mean shifts")
	simulateCmd.Flags().Float64("shift", contract.DefaultSimShift, "Size of each mean shift")
	simulateCmd.Flags().Float64("effect", 0, "Effect of the first event column on returns")

	// Bind all flags of resultsMigrateCmd to Viper
	resultsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(resultsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding results migrate flags", err)
	}
}
