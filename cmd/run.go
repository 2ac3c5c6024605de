package cmd

import (
	"github.com/oilshock/brentcp/core"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd fits both change-point models to a returns file.
var runCmd = &cobra.Command{
	Use:   "run <data.csv>",
	Short: "Fit the basic and event change-point models to a returns file.",
	Long: `Load an aligned CSV of daily returns and event features, fit both models and store the run.

The input needs a date column, a returns column and one column per event
feature. Rows with a missing or non-finite value are dropped and every event
column is standardized before fitting.

Two models are sampled with independent Metropolis chains:
- basic: piecewise-constant mean and volatility between change points
- event: the basic model plus a linear effect of each event feature

The run is stored in the result store (or --results-file) so that the
report commands can read it without sampling again. Fits are cached by a
fingerprint of the data and sampler settings.

Examples:
  # Fit with the defaults (5 change points, 2 chains of 1000 draws)
  brentcp run brent_returns.csv

  # Fewer change points and a longer run
  brentcp run brent_returns.csv -k 3 --samples 4000 --tune 2000

  # Keep the results in a file instead of the result store
  brentcp run brent_returns.csv --results-file run.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRun(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot fit models", err)
		}
	},
}
