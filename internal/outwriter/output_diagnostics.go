package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// WriteDiagnostics outputs a diagnostics report, dispatching based on the
// output format configured. CSV carries the parameter summary only.
func WriteDiagnostics(w io.Writer, report *schema.DiagnosticsReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVSummary(w, report.Summary, fmtFloat, fmtOptional); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeDiagnosticsText(w, report, cfg, fmtFloat, fmtOptional, duration)
	}
	return nil
}

func writeDiagnosticsText(w io.Writer, report *schema.DiagnosticsReport, cfg *contract.Config, fmtFloat func(float64) string, fmtOptional func(*float64) string, duration time.Duration) error {
	if err := writeTitle(w, cfg, "🩺", fmt.Sprintf("Diagnostics for %s", report.Model)); err != nil {
		return err
	}
	waic := report.WAIC
	if _, err := fmt.Fprintf(w, "WAIC: %s (SE %s), p_waic: %s, lppd: %s\n",
		fmtFloat(waic.WAIC), fmtFloat(waic.SE), fmtFloat(waic.PWAIC), fmtFloat(waic.LPPD)); err != nil {
		return err
	}

	conv := report.Convergence
	if _, err := fmt.Fprintf(w, "Convergence: %s (max R-hat %s at %s, threshold %s)\n",
		convergenceLabel(cfg, conv.RHatMax), fmtOptional(conv.RHatMax), orNA(conv.RHatMaxParam), fmtFloat(conv.Threshold)); err != nil {
		return err
	}
	essState := "sufficient"
	if !conv.ESSSufficient {
		essState = "low"
	}
	if _, err := fmt.Fprintf(w, "Effective sample size: %s (min %s at %s, target %s)\n",
		essState, fmtOptional(conv.ESSMin), orNA(conv.ESSMinParam), fmtFloat(conv.MinESS)); err != nil {
		return err
	}

	if ppc := report.PPC; ppc != nil {
		if _, err := fmt.Fprintf(w, "Posterior predictive (%d replicates): mean %s vs %s (p=%s), std %s vs %s (p=%s)\n",
			ppc.Replicates,
			fmtFloat(ppc.ObservedMean), fmtFloat(ppc.ReplicatedMean), fmtFloat(ppc.PValueMean),
			fmtFloat(ppc.ObservedStd), fmtFloat(ppc.ReplicatedStd), fmtFloat(ppc.PValueStd)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Residuals: mean %s, std %s, RMSE %s\n",
			fmtFloat(ppc.ResidualMean), fmtFloat(ppc.ResidualStd), fmtFloat(ppc.RMSE)); err != nil {
			return err
		}
	}

	nameWidth := GetMaxParamNameWidth(cfg)
	rows := make([][]string, 0, len(report.Summary))
	for _, p := range report.Summary {
		rows = append(rows, []string{
			contract.TruncateText(p.Name, nameWidth),
			fmtFloat(p.Mean),
			fmtFloat(p.SD),
			fmtFloat(p.HDILow),
			fmtFloat(p.HDIHigh),
			fmtOptional(p.RHat),
			fmtOptional(p.ESS),
			convergenceLabel(cfg, p.RHat),
		})
	}
	headers := []string{"Parameter", "Mean", "SD", "HDI Low", "HDI High", "R-hat", "ESS", "Status"}
	if err := writeTable(w, headers, rows); err != nil {
		return err
	}

	if report.Comparison != nil {
		if err := writeComparisonBody(w, *report.Comparison, cfg, fmtFloat); err != nil {
			return err
		}
	}
	return writeFooter(w, cfg, "parameters", len(report.Summary), duration)
}

func writeCSVSummary(w io.Writer, summary []schema.ParameterSummary, fmtFloat func(float64) string, fmtOptional func(*float64) string) error {
	header := []string{"parameter", "mean", "sd", "hdi_lower", "hdi_upper", "r_hat", "ess_bulk"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, p := range summary {
			rec := []string{
				p.Name,
				fmtFloat(p.Mean),
				fmtFloat(p.SD),
				fmtFloat(p.HDILow),
				fmtFloat(p.HDIHigh),
				fmtOptional(p.RHat),
				fmtOptional(p.ESS),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}
