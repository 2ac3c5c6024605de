package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// WriteStatus outputs the model status, dispatching based on the output format configured.
func WriteStatus(w io.Writer, status schema.ModelStatus, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, status); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVStatus(w, status, fmtFloat, fmtOptional); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeStatusText(w, status, cfg, fmtFloat, fmtOptional, duration)
	}
	return nil
}

func writeStatusText(w io.Writer, status schema.ModelStatus, cfg *contract.Config, fmtFloat func(float64) string, fmtOptional func(*float64) string, duration time.Duration) error {
	if err := writeTitle(w, cfg, "📊", "Model status"); err != nil {
		return err
	}
	if !status.ModelsFitted {
		_, err := fmt.Fprintln(w, "No models fitted yet. Run 'brentcp run <data.csv>' first.")
		return err
	}

	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	rows := [][]string{
		{"Observations", strconv.Itoa(status.Observations)},
		{"Basic model fitted", yesNo(status.BasicFitted)},
		{"Event model fitted", yesNo(status.EventFitted)},
	}
	if conv := status.Convergence; conv != nil {
		rows = append(rows,
			[]string{"Event model convergence", convergenceLabel(cfg, conv.RHatMax)},
			[]string{"Max R-hat", fmtOptional(conv.RHatMax)},
			[]string{"Min ESS", fmtOptional(conv.ESSMin)},
		)
	}
	if err := writeTable(w, []string{"Item", "Value"}, rows); err != nil {
		return err
	}

	if status.Comparison != nil {
		if err := writeComparisonBody(w, *status.Comparison, cfg, fmtFloat); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Status completed in %s. Results backend: %s\n", duration, cfg.ResultsBackend)
	return err
}

func writeCSVStatus(w io.Writer, status schema.ModelStatus, fmtFloat func(float64) string, fmtOptional func(*float64) string) error {
	header := []string{
		"models_fitted",
		"basic_model_fitted",
		"event_model_fitted",
		"observations",
		"preferred_model",
		"waic_difference",
		"r_hat_max",
		"ess_min",
		"is_converged",
	}
	rec := []string{
		strconv.FormatBool(status.ModelsFitted),
		strconv.FormatBool(status.BasicFitted),
		strconv.FormatBool(status.EventFitted),
		strconv.Itoa(status.Observations),
		"", "", "NA", "NA", "",
	}
	if cmp := status.Comparison; cmp != nil {
		rec[4] = string(cmp.Preferred)
		rec[5] = fmtFloat(cmp.Difference)
	}
	if conv := status.Convergence; conv != nil {
		rec[6] = fmtOptional(conv.RHatMax)
		rec[7] = fmtOptional(conv.ESSMin)
		rec[8] = strconv.FormatBool(conv.Converged)
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write(rec)
	})
}
