package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/parquet"
)

// ExecuteRunExport exports every stored run artifact to Parquet files next to outputFile.
func ExecuteRunExport(store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run store is disabled (runs-backend is none)")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total repository results: %d\n", status.TableSizes[repositoryResultsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	results, err := store.GetAllRepositoryResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve repository results: %w", err)
	}
	selections, err := store.GetAllSelections()
	if err != nil {
		return fmt.Errorf("failed to retrieve selections: %w", err)
	}
	manifest, err := store.GetAllManifest()
	if err != nil {
		return fmt.Errorf("failed to retrieve manifest: %w", err)
	}

	exports := []struct {
		suffix string
		label  string
		count  int
		write  func(path string) error
	}{
		{".runs.parquet", "runs", len(runs), func(path string) error {
			return parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), path)
		}},
		{".repository_results.parquet", "repository results", len(results), func(path string) error {
			return parquet.WriteRepositoryResultsParquet(parquet.ConvertRepositoryResultRecords(results), path)
		}},
		{".selections.parquet", "selections", len(selections), func(path string) error {
			return parquet.WriteSelectionsParquet(parquet.ConvertSelectionRecords(selections), path)
		}},
		{".manifest.parquet", "manifest entries", len(manifest), func(path string) error {
			return parquet.WriteManifestParquet(parquet.ConvertManifestRecords(manifest), path)
		}},
	}
	for _, export := range exports {
		path := outputFile + export.suffix
		if err := export.write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", export.label, err)
		}
		fmt.Printf("Exported %d %s to: %s\n", export.count, export.label, path)
	}

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
