// Package outwriter has output and writer logic.
package outwriter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
)

// WriteRunResult outputs the shortlist, manifest and data quality summary of a run,
// dispatching based on the output format configured.
func WriteRunResult(result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	if result == nil {
		return errors.New("no run result to write")
	}
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONRunResult(w, result, cfg)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRunResult(w, result, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquetRunResult(result, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunTable(w, result, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// WriteProfiles displays the active weight profiles and thresholds of every category.
func WriteProfiles(cfg *contract.Config) error {
	model := buildProfilesRenderModel(cfg)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVProfiles(w, model)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errors.New("parquet output is not supported for profiles")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfilesText(w, model, cfg)
		}, "Wrote text")
	}
}

// LogRunHeader prints a concise, 2-line header before a run.
func LogRunHeader(cfg *contract.Config, repositories, records int) {
	scope := "all categories"
	if len(cfg.Categories) > 0 {
		scope = fmt.Sprintf("%d categories", len(cfg.Categories))
	}

	// Line 1: The batch summary (size and algorithm)
	fmt.Printf("🔎 Batch: %d repositories, %d source records across %s (Algorithm: %s)\n",
		repositories, records, scope, cfg.Algorithm)

	// Line 2: The point in time being judged
	asOf := "now"
	if !cfg.AsOf.IsZero() {
		asOf = cfg.AsOf.Format(contract.DateTimeFormat)
	}
	budget := "none"
	if cfg.Budget > 0 {
		budget = cfg.Budget.String()
	}
	fmt.Printf("📅 As of: %s (budget: %s, workers: %d)\n", asOf, budget, cfg.Workers)
}
