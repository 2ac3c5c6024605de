package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// createFormatters creates the formatter closures shared by every output type.
// fmtOptional renders a nil statistic as "NA".
func createFormatters(precision int) (fmtFloat func(float64) string, fmtOptional func(*float64) string) {
	fmtFloat = func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	fmtOptional = func(v *float64) string {
		if v == nil {
			return "NA"
		}
		return fmtFloat(*v)
	}
	return fmtFloat, fmtOptional
}

// writeTable renders rows under headers with right-aligned cells.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// writeTitle prints a section title, with its emoji when enabled.
func writeTitle(w io.Writer, cfg *contract.Config, emoji, title string) error {
	if cfg.UseEmojis {
		title = emoji + " " + title
	}
	_, err := fmt.Fprintln(w, title)
	return err
}

// writeFooter prints the timing line under a table.
func writeFooter(w io.Writer, cfg *contract.Config, what string, n int, duration time.Duration) error {
	_, err := fmt.Fprintf(w, "Showing %d %s (completed in %s). Results backend: %s\n", n, what, duration, cfg.ResultsBackend)
	return err
}

// convergenceLabel labels an R-hat, colored when colors are enabled.
func convergenceLabel(cfg *contract.Config, rhat *float64) string {
	if cfg.UseColors {
		return contract.GetColorConvergenceLabel(rhat, cfg.Model.RHatThreshold)
	}
	return contract.GetPlainConvergenceLabel(rhat, cfg.Model.RHatThreshold)
}

// significanceLabel labels a coefficient, colored when colors are enabled.
func significanceLabel(cfg *contract.Config, significant bool) string {
	if cfg.UseColors {
		return contract.GetColorSignificanceLabel(significant)
	}
	return contract.GetPlainSignificanceLabel(significant)
}
