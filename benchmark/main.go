// Package main provides a performance benchmarking tool for the reposcout CLI.
// It generates synthetic batches of increasing size, then measures how long each
// ranking algorithm takes to run over them, once straight from the batch file and
// once from the record store. Each case runs multiple times, treating the first
// successful run as cold and averaging the rest as warm, and the results go to CSV.
//
// Prerequisites:
// - reposcout binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the generated batches and SQLite stores
package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/reposcout/schema"
	"gopkg.in/yaml.v3"
)

// BenchmarkResult holds the result of a benchmark case (cold run and average of warm runs).
type BenchmarkResult struct {
	Repositories int
	Algorithm    string
	Source       string
	ColdTime     string
	WarmTime     string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir    string
	Timeout    time.Duration
	Workers    int
	Runs       int
	BatchSizes []int
	Algorithms []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:    os.Args[1],
		Timeout:    5 * time.Minute,
		Workers:    14,
		Runs:       4,
		BatchSizes: []int{100, 1000, 10000},
		Algorithms: []string{string(schema.WeightedSumRank), string(schema.ParetoRank), string(schema.TopsisRank)},
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

// checkPrerequisites verifies that the reposcout binary exists and the work directory is usable.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("reposcout"); err != nil {
		return fmt.Errorf("reposcout binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks executes every algorithm against every batch size and input source.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d batch sizes, %d algorithms, %v timeout, %d workers, %d runs each\n",
		len(config.BatchSizes), len(config.Algorithms), config.Timeout, config.Workers, config.Runs)

	for _, size := range config.BatchSizes {
		fmt.Printf("Benchmarking %d repositories\n", size)

		batchPath := filepath.Join(config.WorkDir, fmt.Sprintf("batch_%d.yaml", size))
		if err := writeBatch(batchPath, size); err != nil {
			fmt.Printf("  Failed to generate batch: %v\n", err)
			continue
		}

		recordsDB := filepath.Join(config.WorkDir, fmt.Sprintf("records_%d.db", size))
		_ = os.Remove(recordsDB)
		ingest := exec.Command("reposcout", "ingest", batchPath, "--records-backend", "sqlite", "--records-db-connect", recordsDB, "--runs-backend", "none")
		if output, err := ingest.CombinedOutput(); err != nil {
			fmt.Printf("  Failed to ingest batch: %v\nOutput: %s\n", err, string(output))
			continue
		}

		for _, algorithm := range config.Algorithms {
			fileArgs := []string{"run", batchPath, "--records-backend", "none"}
			results = append(results, runBenchmarkCase(config, size, algorithm, "file", fileArgs))

			storeArgs := []string{"run", "--records-backend", "sqlite", "--records-db-connect", recordsDB}
			results = append(results, runBenchmarkCase(config, size, algorithm, "store", storeArgs))
		}
	}

	return results
}

// runBenchmarkCase times one algorithm over one input source.
func runBenchmarkCase(config BenchmarkConfig, size int, algorithm, source string, baseArgs []string) BenchmarkResult {
	fmt.Printf("  %s from %s (%d runs)\n", algorithm, source, config.Runs)

	args := append(baseArgs,
		"--algorithm", algorithm,
		"--workers", fmt.Sprint(config.Workers),
		"--runs-backend", "none",
		"--budget", "none",
		"--color", "no",
	)
	coldTime, warmTimes := runBenchmark(config, args)

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	warmAvg := "TIMEOUT"
	if len(warmTimes) > 0 {
		var sum float64
		for _, t := range warmTimes {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(warmTimes)))
	}

	fmt.Printf("    Cold time: %s, Warm average: %s\n", coldTimeStr, warmAvg)

	return BenchmarkResult{
		Repositories: size,
		Algorithm:    algorithm,
		Source:       source,
		ColdTime:     coldTimeStr,
		WarmTime:     warmAvg,
	}
}

// runBenchmark executes a reposcout command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, args []string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		start := time.Now()

		cmd := exec.Command("reposcout", args...)
		cmd.Dir = config.WorkDir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion.
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "completed in") &&
		strings.Contains(outputStr, "workers")
}

var benchCategories = []schema.Category{
	schema.RustLibraries, schema.GoLibraries, schema.PythonLibraries, schema.CLITools,
}

// writeBatch generates a deterministic synthetic batch with one host and one registry record per repository.
func writeBatch(path string, size int) error {
	rng := rand.New(rand.NewPCG(uint64(size), 42))
	observed := time.Now().UTC().Add(-24 * time.Hour).Truncate(time.Second)

	batch := schema.Batch{
		Repositories: make([]schema.Repository, 0, size),
		Records:      make([]schema.SourceRecord, 0, 2*size),
	}
	for i := range size {
		id := fmt.Sprintf("bench-org-%d/repo-%d", i%97, i)
		batch.Repositories = append(batch.Repositories, schema.Repository{ID: id, Category: benchCategories[i%len(benchCategories)]})

		// Popularity follows a heavy tail so that every scale bucket gets filled
		stars := math.Floor(math.Exp(rng.Float64() * 11))
		batch.Records = append(batch.Records,
			schema.SourceRecord{
				RepositoryID: id,
				Source:       schema.HostSource,
				ObservedAt:   observed,
				Fields: map[schema.FieldName]schema.FieldValue{
					schema.StarsField:                schema.Number(stars),
					schema.ForksField:                schema.Number(math.Floor(stars * rng.Float64() * 0.2)),
					schema.ContributorsField:         schema.Number(float64(1 + rng.IntN(500))),
					schema.CommitFrequencyField:      schema.Number(float64(rng.IntN(60))),
					schema.ReleaseFrequencyField:     schema.Number(float64(rng.IntN(24))),
					schema.IssueResponseHoursField:   schema.Number(1 + rng.Float64()*200),
					schema.IssueResolutionRateField:  schema.Number(rng.Float64()),
					schema.ContributorDiversityField: schema.Number(rng.Float64()),
					schema.DocsCompletenessField:     schema.Number(rng.Float64()),
					schema.HasTestsField:             schema.Bool(rng.IntN(4) > 0),
					schema.HasSecurityPolicyField:    schema.Bool(rng.IntN(2) > 0),
				},
			},
			schema.SourceRecord{
				RepositoryID: id,
				Source:       schema.RegistryCratesSource,
				ObservedAt:   observed,
				Fields: map[schema.FieldName]schema.FieldValue{
					schema.DownloadsField:     schema.Number(math.Floor(stars * (50 + rng.Float64()*500))),
					schema.LastReleaseAtField: schema.Timestamp(observed.Add(-time.Duration(rng.IntN(400)) * 24 * time.Hour)),
				},
			},
		)
	}

	data, err := yaml.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/reposcout_benchmark_%s.csv", timestamp)

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

	if err := writer.Write([]string{"repositories", "algorithm", "source", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := []string{fmt.Sprint(result.Repositories), result.Algorithm, result.Source, result.ColdTime, result.WarmTime}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, source := range []string{"file", "store"} {
		fmt.Printf("Runs from %s:\n", source)
		for _, result := range results {
			if result.Source == source {
				fmt.Printf("  %6d %-12s: Cold: %s, Warm: %s\n", result.Repositories, result.Algorithm, result.ColdTime, result.WarmTime)
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
