// Package main benchmarks the brentcp CLI on simulated series of growing length.
// Each size is fitted several times without the fit cache and several times with it,
// treating the first cached run as cold and averaging the rest as warm,
// and the timings are written to a CSV file.
//
// Prerequisites:
// - brentcp binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the simulated data and the benchmark databases
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Observations int
	Command      string
	NoCacheTime  string
	ColdTime     string
	WarmTime     string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir      string
	Timeout      time.Duration
	NoCacheRuns  int
	CacheRuns    int
	Sizes        []int
	Changepoints int
	Samples      int
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:      os.Args[1],
		Timeout:      10 * time.Minute,
		NoCacheRuns:  3,
		CacheRuns:    4,
		Sizes:        []int{250, 1000, 4000},
		Changepoints: 2,
		Samples:      1000,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the brentcp binary and the work dir exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("brentcp"); err != nil {
		return fmt.Errorf("brentcp binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// benchEnv points both stores at files inside the work dir.
func benchEnv(config BenchmarkConfig, cacheBackend string) []string {
	return append(os.Environ(),
		"BRENTCP_CACHE_BACKEND="+cacheBackend,
		"BRENTCP_CACHE_DB_CONNECT="+filepath.Join(config.WorkDir, "bench_cache.db"),
		"BRENTCP_RESULTS_BACKEND=none",
	)
}

// brentcp runs one command with a timeout and returns how long it took.
func brentcp(config BenchmarkConfig, env []string, args ...string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "brentcp", args...)
	cmd.Dir = config.WorkDir
	cmd.Env = env

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("brentcp %v: %w\nOutput: %s", args, err, string(output))
	}
	return time.Since(start), nil
}

// runBenchmarks simulates one series per size and benchmarks the run command on it
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Sizes), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, n := range config.Sizes {
		dataPath := filepath.Join(config.WorkDir, fmt.Sprintf("sim_%d.csv", n))
		breaks := fmt.Sprintf("%d,%d", n/3, 2*n/3)
		if _, err := brentcp(config, benchEnv(config, "none"), "simulate",
			"--observations", strconv.Itoa(n), "--breaks", breaks, "--output-file", dataPath); err != nil {
			fmt.Printf("Skipping %d observations: %v\n", n, err)
			continue
		}

		// Start every size from an empty cache
		if _, err := brentcp(config, benchEnv(config, "sqlite"), "cache", "clear"); err != nil {
			fmt.Printf("Warning: failed to clear cache: %v\n", err)
		}

		args := []string{"run", dataPath,
			"-k", strconv.Itoa(config.Changepoints),
			"--samples", strconv.Itoa(config.Samples),
			"--tune", strconv.Itoa(config.Samples / 2),
		}
		results = append(results, runBenchmarkSuite(config, n, args))
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, n int, args []string) BenchmarkResult {
	fmt.Printf("Running %s on %d observations\n", args[0], n)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "FAILED"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "FAILED"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Observations: n,
		Command:      args[0],
		NoCacheTime:  noCacheAvg,
		ColdTime:     coldTimeStr,
		WarmTime:     warmAvg,
	}
}

// runBenchmark executes a command several times with the given cache backend.
// Without the cache every run counts as warm.
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for range numRuns {
		elapsed, err := brentcp(config, benchEnv(config, cacheBackend), args...)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		times = append(times, elapsed.Seconds())
	}

	if cacheBackend == "none" {
		return 0, times
	}
	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("brentcp_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"observations", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		record := []string{strconv.Itoa(result.Observations), result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %6d obs: No-cache: %s, Cold: %s, Warm: %s\n",
			result.Observations, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
