package cmd

import (
	"github.com/oilshock/brentcp/core"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/spf13/cobra"
)

// simulateCmd writes a synthetic returns file.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Write a synthetic returns file with known change points.",
	Long: `Generate an aligned CSV in the layout run expects, with mean shifts at known indices.

Useful for:
- Checking that run recovers the planted change points
- Trying the report commands without real market data

Examples:
  # 500 days with breaks at 150 and 320
  brentcp simulate --breaks 150,320 --output-file sim.csv
  brentcp run sim.csv -k 2`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSimulate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot simulate returns", err)
		}
	},
}
