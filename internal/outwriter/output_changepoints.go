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

// WriteChangePoints outputs change points, dispatching based on the output format configured.
func WriteChangePoints(w io.Writer, cps []schema.ChangePoint, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, cps); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVChangePoints(w, cps); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeChangePointTable(w, cps, cfg, duration)
	}
	return nil
}

func writeChangePointTable(w io.Writer, cps []schema.ChangePoint, cfg *contract.Config, duration time.Duration) error {
	if err := writeTitle(w, cfg, "📍", fmt.Sprintf("Change points (%s model, %.0f%% HDI)", cfg.Kind, cfg.Model.HDIProb*100)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(cps))
	for _, cp := range cps {
		rows = append(rows, []string{
			strconv.Itoa(cp.ID),
			cp.Date,
			strconv.Itoa(cp.TimeIndex),
			cp.HDILowDate,
			cp.HDIHighDate,
			strconv.Itoa(cp.HDIHigh - cp.HDILow),
		})
	}
	if err := writeTable(w, []string{"ID", "Date", "Index", "HDI Low", "HDI High", "Width"}, rows); err != nil {
		return err
	}
	return writeFooter(w, cfg, "change points", len(cps), duration)
}

func writeCSVChangePoints(w io.Writer, cps []schema.ChangePoint) error {
	header := []string{"id", "date", "time_index", "hdi_lower_date", "hdi_upper_date", "hdi_lower_index", "hdi_upper_index"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, cp := range cps {
			rec := []string{
				strconv.Itoa(cp.ID),
				cp.Date,
				strconv.Itoa(cp.TimeIndex),
				cp.HDILowDate,
				cp.HDIHighDate,
				strconv.Itoa(cp.HDILow),
				strconv.Itoa(cp.HDIHigh),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
