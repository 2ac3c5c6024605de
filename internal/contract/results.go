package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oilshock/brentcp/schema"
)

// ErrNoResults is returned when no stored run or results file is available.
var ErrNoResults = errors.New("no results available; run the models first")

// WriteResultsFile writes results as indented JSON.
func WriteResultsFile(path string, results *schema.Results) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file %s: %w", path, err)
	}
	return nil
}

// ReadResultsFile reads results written by WriteResultsFile.
func ReadResultsFile(path string) (*schema.Results, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoResults, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results file %s: %w", path, err)
	}
	var results schema.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	if results.Dataset == nil || len(results.Models) == 0 {
		return nil, fmt.Errorf("%w: %s has no fitted models", ErrNoResults, path)
	}
	return &results, nil
}
