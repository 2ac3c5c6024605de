// Package outwriter renders reports as tables, CSV or JSON.
//
// Every report has a Write function that renders to an io.Writer and a Print
// function that renders to the configured output file or stdout.
package outwriter

import (
	"io"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// PrintChangePoints renders change points to the configured output.
func PrintChangePoints(cps []schema.ChangePoint, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteChangePoints(w, cps, cfg, duration)
	}, "Wrote change points")
}

// PrintEventCoefficients renders event coefficients to the configured output.
func PrintEventCoefficients(coefs []schema.EventCoefficient, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteEventCoefficients(w, coefs, cfg, duration)
	}, "Wrote event coefficients")
}

// PrintSegments renders segments to the configured output.
func PrintSegments(segs []schema.Segment, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteSegments(w, segs, cfg, duration)
	}, "Wrote segments")
}

// PrintComparison renders a model comparison to the configured output.
func PrintComparison(cmp schema.Comparison, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteComparison(w, cmp, cfg, duration)
	}, "Wrote model comparison")
}

// PrintDiagnostics renders a diagnostics report to the configured output.
func PrintDiagnostics(report *schema.DiagnosticsReport, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteDiagnostics(w, report, cfg, duration)
	}, "Wrote diagnostics")
}

// PrintStatus renders the model status to the configured output.
func PrintStatus(status schema.ModelStatus, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteStatus(w, status, cfg, duration)
	}, "Wrote model status")
}
