package cmd

import (
	"fmt"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/iocache"
	"github.com/huangsam/reposcout/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run store operations.
// This is used by commands that need run access without full shared setup.
func runsSetup() error {
	backend, connStr, err := runsMigrateSetup()
	if err != nil {
		return err
	}

	// Initialize the run store only (no record access for run commands)
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}

	// Get output-related config values (used by export command)
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// runsMigrateSetup loads minimal configuration needed for migrate operations.
// It does NOT initialize stores or create tables, so migrations can run on a fresh database.
func runsMigrateSetup() (schema.DatabaseBackend, string, error) {
	backend, connStr, err := storeSetup("runs-backend", "runs-db-connect", contract.GetRunsDBFilePath)
	if err != nil {
		return "", "", err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	return backend, connStr, nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetupWrapper wraps runsMigrateSetup to provide PreRunE for the migrate command.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	_, _, err := runsMigrateSetup()
	return err
}

// runsCmd focused on run history management.
//
// Note: Runs subcommands use minimal initialization (runsSetup) instead of
// the full sharedSetup used by pipeline commands.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage run history, exports and schema migrations",
	Long: `Manage the run store that records every pipeline run, storing:
- Run metadata (id, timing, algorithm, configuration, data quality summary)
- Per-repository unified records, scores and filter outcomes
- Shortlist decisions of the diversity balancer
- The manifest of rejected inputs and warnings

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run tracking statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  reposcout runs status

  # Export for analysis in pandas/DuckDB
  reposcout runs export --output-file runs-data`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all recorded runs with their repository results, selections and manifests.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  reposcout runs export --output-file backup
  reposcout runs clear`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Close first so SQLite releases the file before it is removed
		iocache.CloseStores()
		if err := iocache.ClearRuns(cfg.RunsBackend, cfg.RunsDBConnect, cfg.RunsDBConnect); err != nil {
			contract.LogFatal("Failed to clear run data", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

// runsStatusCmd shows run store status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show detailed information about run tracking.

Displays:
- Backend type and connection status
- Total number of runs and the latest run id
- Last and oldest run timestamps
- Total repositories processed across all runs
- Database table sizes

Examples:
  # Check run tracking status
  reposcout runs status`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRunStore()
		if store == nil {
			fmt.Println("Runs Backend: none")
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(status)
	},
}

// runsExportCmd exports run data to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored run data to Parquet files for use with analytics tools.

Writes four datasets next to each other, named after --output-file:
- <name>.runs.parquet - run metadata
- <name>.repository_results.parquet - unified records, scores and filter outcomes
- <name>.selections.parquet - shortlist decisions
- <name>.manifest.parquet - rejected inputs and warnings

Requires: --output-file parameter

Examples:
  # Export all data
  reposcout runs export --output-file reposcout-data

  # Use with DuckDB for analysis
  duckdb -c "SELECT algorithm, count(*) FROM read_parquet('reposcout-data.runs.parquet') GROUP BY 1"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteRunExport(iocache.Manager.GetRunStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run data", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  reposcout runs migrate

  # Migrate to specific version
  reposcout runs migrate --target-version 1

  # Rollback to the initial state
  reposcout runs migrate --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cfg.RunsBackend, cfg.RunsDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
