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

// WriteEventCoefficients outputs event coefficients, dispatching based on the output format configured.
func WriteEventCoefficients(w io.Writer, coefs []schema.EventCoefficient, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, coefs); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVEventCoefficients(w, coefs, fmtFloat); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeEventCoefficientTable(w, coefs, cfg, fmtFloat, duration)
	}
	return nil
}

func writeEventCoefficientTable(w io.Writer, coefs []schema.EventCoefficient, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if err := writeTitle(w, cfg, "📰", fmt.Sprintf("Event coefficients (%.0f%% HDI)", cfg.Model.HDIProb*100)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(coefs))
	significant := 0
	for _, c := range coefs {
		if c.Significant {
			significant++
		}
		rows = append(rows, []string{
			c.Feature,
			fmtFloat(c.Mean),
			fmtFloat(c.HDILow),
			fmtFloat(c.HDIHigh),
			significanceLabel(cfg, c.Significant),
		})
	}
	if err := writeTable(w, []string{"Feature", "Mean", "HDI Low", "HDI High", "Effect"}, rows); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%d of %d coefficients exclude zero\n", significant, len(coefs)); err != nil {
		return err
	}
	return writeFooter(w, cfg, "coefficients", len(coefs), duration)
}

func writeCSVEventCoefficients(w io.Writer, coefs []schema.EventCoefficient, fmtFloat func(float64) string) error {
	header := []string{"feature", "mean", "hdi_lower", "hdi_upper", "significant"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, c := range coefs {
			rec := []string{
				c.Feature,
				fmtFloat(c.Mean),
				fmtFloat(c.HDILow),
				fmtFloat(c.HDIHigh),
				strconv.FormatBool(c.Significant),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
