package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Diagnostic label constants.
const (
	ConvergedValue     = "Converged"       // Converged value
	NotConvergedValue  = "Not converged"   // NotConverged value
	UndefinedValue     = "Undefined"       // Undefined value
	SignificantValue   = "Significant"     // Significant value
	InsignificantValue = "Not significant" // Insignificant value
)

// Color variables for console output.
var (
	GoodColor    = color.New(color.FgGreen, color.Bold) // GoodColor marks a passing check.
	BadColor     = color.New(color.FgRed, color.Bold)   // BadColor marks a failing check.
	NeutralColor = color.New(color.FgYellow)            // NeutralColor marks an undefined statistic.
	InfoColor    = color.New(color.FgCyan)              // InfoColor marks an informational value.
)

// GetPlainConvergenceLabel returns a plain text label for an R-hat value
// against a threshold. A nil R-hat is undefined.
func GetPlainConvergenceLabel(rhat *float64, threshold float64) string {
	switch {
	case rhat == nil:
		return UndefinedValue
	case *rhat < threshold:
		return ConvergedValue
	default:
		return NotConvergedValue
	}
}

// GetColorConvergenceLabel returns a colored convergence label for console output (table).
func GetColorConvergenceLabel(rhat *float64, threshold float64) string {
	text := GetPlainConvergenceLabel(rhat, threshold)
	switch text {
	case ConvergedValue:
		return GoodColor.Sprint(text)
	case NotConvergedValue:
		return BadColor.Sprint(text)
	default:
		return NeutralColor.Sprint(text)
	}
}

// GetPlainSignificanceLabel returns a plain text label for a coefficient's significance.
func GetPlainSignificanceLabel(significant bool) string {
	if significant {
		return SignificantValue
	}
	return InsignificantValue
}

// GetColorSignificanceLabel returns a colored significance label for console output (table).
func GetColorSignificanceLabel(significant bool) string {
	if significant {
		return GoodColor.Sprint(SignificantValue)
	}
	return InfoColor.Sprint(InsignificantValue)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the fit cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".brentcp_cache.db"
	}
	return filepath.Join(homeDir, ".brentcp_cache.db")
}

// GetResultsDBFilePath returns the path to the SQLite DB file for result storage.
func GetResultsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".brentcp_results.db"
	}
	return filepath.Join(homeDir, ".brentcp_results.db")
}

// TruncateText truncates a label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so the ellipsis leaves room for content.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated list and drops empty items.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseIntList parses a comma-separated list of integers.
func ParseIntList(s string) ([]int, error) {
	parts := SplitList(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
