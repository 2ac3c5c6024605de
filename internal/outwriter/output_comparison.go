package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// WriteComparison outputs the WAIC comparison, dispatching based on the output format configured.
func WriteComparison(w io.Writer, cmp schema.Comparison, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, cmp); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVComparison(w, cmp, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeTitle(w, cfg, "⚖️ ", "Model comparison (WAIC, lower is better)"); err != nil {
			return err
		}
		if err := writeComparisonBody(w, cmp, cfg, fmtFloat); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Comparison completed in %s. Results backend: %s\n", duration, cfg.ResultsBackend)
		return err
	}
	return nil
}

// writeComparisonBody writes the comparison table and verdict lines. It is
// shared by the comparison, diagnostics and status views.
func writeComparisonBody(w io.Writer, cmp schema.Comparison, cfg *contract.Config, fmtFloat func(float64) string) error {
	mark := func(key schema.ModelKey) string {
		if key == cmp.Preferred {
			return "*"
		}
		return ""
	}
	rows := [][]string{
		{string(schema.BasicModelKey), fmtFloat(cmp.BasicWAIC), fmtFloat(cmp.BasicWAICSE), mark(schema.BasicModelKey)},
		{string(schema.EventModelKey), fmtFloat(cmp.EventWAIC), fmtFloat(cmp.EventWAICSE), mark(schema.EventModelKey)},
	}
	if err := writeTable(w, []string{"Model", "WAIC", "SE", "Preferred"}, rows); err != nil {
		return err
	}

	preferred := string(cmp.Preferred)
	if cfg.UseColors {
		preferred = contract.GoodColor.Sprint(preferred)
	}
	if _, err := fmt.Fprintf(w, "Difference (basic - event): %s ± %s. Preferred: %s\n",
		fmtFloat(cmp.Difference), fmtFloat(cmp.DifferenceSE), preferred); err != nil {
		return err
	}
	if cmp.Warning {
		msg := "Warning: some pointwise p_waic exceed 0.4; WAIC may be unreliable"
		if cfg.UseColors {
			msg = color.New(color.FgYellow).Sprint(msg)
		}
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVComparison(w io.Writer, cmp schema.Comparison, fmtFloat func(float64) string) error {
	header := []string{
		"basic_waic",
		"basic_waic_se",
		"event_waic",
		"event_waic_se",
		"difference",
		"difference_se",
		"preferred_model",
		"warning",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write([]string{
			fmtFloat(cmp.BasicWAIC),
			fmtFloat(cmp.BasicWAICSE),
			fmtFloat(cmp.EventWAIC),
			fmtFloat(cmp.EventWAICSE),
			fmtFloat(cmp.Difference),
			fmtFloat(cmp.DifferenceSE),
			string(cmp.Preferred),
			strconv.FormatBool(cmp.Warning),
		})
	})
}
