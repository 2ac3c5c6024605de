// Package dataset reads observation series from CSV files and generates
// synthetic series with known change points.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/oilshock/brentcp/schema"
)

// ErrMissingColumn is returned when a requested column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	schema.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-Jan-06",
	"02-Jan-2006",
	"Jan 02, 2006",
	"01/02/2006",
}

// missingValues are cells read as NaN.
var missingValues = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"n/a":  {},
	"null": {},
}

// LoadCSV reads the date, target and covariate columns of a CSV file. Missing
// numeric cells become NaN and are left for preparation to drop. Rows are
// returned in date order.
func LoadCSV(path, dateCol, targetCol string, covCols []string) ([]schema.RawObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := ReadCSV(f, dateCol, targetCol, covCols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, dateCol, targetCol string, covCols []string) ([]schema.RawObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	dateIdx, err := columnIndex(header, dateCol)
	if err != nil {
		return nil, err
	}
	targetIdx, err := columnIndex(header, targetCol)
	if err != nil {
		return nil, err
	}
	covIdx := make([]int, len(covCols))
	for j, col := range covCols {
		if covIdx[j], err = columnIndex(header, col); err != nil {
			return nil, err
		}
	}

	var rows []schema.RawObservation
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := parseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		obs := schema.RawObservation{Date: date, Covariates: make([]float64, len(covIdx))}
		if obs.Target, err = parseValue(rec[targetIdx]); err != nil {
			return nil, fmt.Errorf("line %d, column %s: %w", line, targetCol, err)
		}
		for j, idx := range covIdx {
			if obs.Covariates[j], err = parseValue(rec[idx]); err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, covCols[j], err)
			}
		}
		rows = append(rows, obs)
	}

	slices.SortStableFunc(rows, func(a, b schema.RawObservation) int {
		return a.Date.Compare(b.Date)
	})
	return rows, nil
}

// WriteCSV writes rows with a header of the given column names.
func WriteCSV(w io.Writer, rows []schema.RawObservation, dateCol, targetCol string, covCols []string) error {
	cw := csv.NewWriter(w)
	header := append([]string{dateCol, targetCol}, covCols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, obs := range rows {
		rec[0] = obs.Date.Format(schema.DateLayout)
		rec[1] = strconv.FormatFloat(obs.Target, 'g', -1, 64)
		for j, x := range obs.Covariates {
			rec[2+j] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnIndex(header []string, name string) (int, error) {
	idx := slices.Index(header, name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return idx, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if _, ok := missingValues[strings.ToLower(s)]; ok {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
