package cmd

import (
	"github.com/oilshock/brentcp/core"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/spf13/cobra"
)

// reportRun adapts a core executor to a cobra Run function.
func reportRun(exec core.ExecutorFunc, what string) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		if err := exec(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot report "+what, err)
		}
	}
}

// changepointsCmd lists the detected change points.
var changepointsCmd = &cobra.Command{
	Use:   "changepoints",
	Short: "List the detected change points with dates and credible intervals.",
	Long: `Map the posterior mean of each change point to a trading day.

Each row shows the posterior mean index, its date, and the HDI bounds of the
change point as indices and dates.

Examples:
  # Change points of the event model from the latest run
  brentcp changepoints

  # Change points of the basic model with 89% intervals
  brentcp changepoints --model basic --hdi-prob 0.89`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteChangePoints, "change points"),
}

// coefficientsCmd lists the event effects.
var coefficientsCmd = &cobra.Command{
	Use:   "coefficients",
	Short: "List the event feature effects of the event model.",
	Long: `Summarize the posterior of each event coefficient.

An effect is flagged significant when its HDI excludes zero. The effects are
per standard deviation of the feature, since features are standardized.

Examples:
  brentcp coefficients
  brentcp coefficients --output csv --output-file effects.csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteCoefficients, "event coefficients"),
}

// segmentsCmd lists the regimes between change points.
var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "List the regimes between change points.",
	Long: `Split the series at the posterior mean change points and describe each regime.

Each row shows the date range, the model mean and volatility, and the raw
mean and standard deviation of the returns inside the segment.

Examples:
  brentcp segments
  brentcp segments --model basic --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteSegments, "segments"),
}

// diagnosticsCmd reports convergence and predictive checks.
var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Report convergence, posterior predictive checks and parameter summaries.",
	Long: `Check whether a fit can be trusted.

Shows:
- R-hat and effective sample size of every parameter
- Convergence against --rhat-threshold and --min-ess
- Posterior predictive p-values of the mean and standard deviation
- Predictive RMSE

Examples:
  brentcp diagnostics
  brentcp diagnostics --model basic --ppc-draws 500`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteDiagnostics, "diagnostics"),
}

// compareCmd compares the two models.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the basic and event models by WAIC.",
	Long: `Compare the two fits by the widely applicable information criterion.

Lower WAIC is better. The difference is reported with its standard error,
and a warning is shown when either fit has unreliable pointwise terms.

Examples:
  brentcp compare
  brentcp compare --run-id 3`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteCompare, "comparison"),
}

// statusCmd summarizes the stored run.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which models are fitted and whether they converged.",
	Long: `Summarize the latest run: fitted models, observations, the preferred
model and the convergence of the event model.

Examples:
  brentcp status
  brentcp status --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run:     reportRun(core.ExecuteStatus, "status"),
}
