package outwriter

import (
	"os"

	"github.com/oilshock/brentcp/internal/contract"
	"golang.org/x/term"
)

// summaryFixedWidth is the room taken by the numeric columns of the
// parameter summary table, borders included.
const summaryFixedWidth = 95

// GetMaxParamNameWidth calculates the maximum width for parameter names in the
// summary table based on terminal width.
func GetMaxParamNameWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	available := termWidth - summaryFixedWidth
	if available < 12 {
		return 12
	}
	if available > 40 {
		return 40
	}
	return available
}
