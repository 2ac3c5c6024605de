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

// WriteSegments outputs regimes, dispatching based on the output format configured.
func WriteSegments(w io.Writer, segs []schema.Segment, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, segs); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVSegments(w, segs, fmtFloat, fmtOptional); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeSegmentTable(w, segs, cfg, fmtFloat, fmtOptional, duration)
	}
	return nil
}

func writeSegmentTable(w io.Writer, segs []schema.Segment, cfg *contract.Config, fmtFloat func(float64) string, fmtOptional func(*float64) string, duration time.Duration) error {
	if err := writeTitle(w, cfg, "📈", fmt.Sprintf("Segments (%s model)", cfg.Kind)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(segs))
	for _, s := range segs {
		rows = append(rows, []string{
			strconv.Itoa(s.ID),
			s.StartDate,
			s.EndDate,
			strconv.Itoa(s.DurationDays),
			strconv.Itoa(s.Observations),
			fmtFloat(s.ModelMean),
			fmtFloat(s.ModelSigma),
			fmtOptional(s.RawMean),
			fmtOptional(s.RawStd),
		})
	}
	headers := []string{"ID", "Start", "End", "Days", "Obs", "Mean", "Volatility", "Raw Mean", "Raw Std"}
	if err := writeTable(w, headers, rows); err != nil {
		return err
	}
	return writeFooter(w, cfg, "segments", len(segs), duration)
}

func writeCSVSegments(w io.Writer, segs []schema.Segment, fmtFloat func(float64) string, fmtOptional func(*float64) string) error {
	header := []string{
		"id",
		"start_index",
		"end_index",
		"start_date",
		"end_date",
		"duration_days",
		"n_obs",
		"mean_log_return",
		"volatility",
		"raw_mean",
		"raw_std",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range segs {
			rec := []string{
				strconv.Itoa(s.ID),
				strconv.Itoa(s.StartIndex),
				strconv.Itoa(s.EndIndex),
				s.StartDate,
				s.EndDate,
				strconv.Itoa(s.DurationDays),
				strconv.Itoa(s.Observations),
				fmtFloat(s.ModelMean),
				fmtFloat(s.ModelSigma),
				fmtOptional(s.RawMean),
				fmtOptional(s.RawStd),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
