package cmd

import (
	"github.com/huangsam/reposcout/core"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd performs a full aggregation, scoring and ranking run.
var runCmd = &cobra.Command{
	Use:   "run [batch-file...]",
	Short: "Aggregate, score and rank a batch into a diverse shortlist.",
	Long: `Run the whole pipeline over a batch of repositories.

Each repository's source records are normalized, merged into one unified record
with per-field provenance and data quality, scored with its category's weight
profile, classified against the threshold policy and ranked globally. The
diversity balancer then picks the shortlist under scale and category quotas.

The batch comes from the given files, or from the record store when none are given.
Every run is recorded in the run store unless --runs-backend is none.

Examples:
  # Rank a batch file with the default weighted sum
  reposcout run batch.yaml

  # Rank what was ingested, as it looked a month ago
  reposcout run --as-of "1 month ago"

  # Pareto fronts for two categories with the full breakdown
  reposcout run --algorithm pareto --category rust-libraries,go-libraries --explain

  # Export the ranking to CSV
  reposcout run batch.yaml --output csv --output-file shortlist.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRun(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot complete run", err)
		}
	},
}

// ingestCmd appends batch files to the record store.
var ingestCmd = &cobra.Command{
	Use:   "ingest <batch-file...>",
	Short: "Append repositories and source records to the record store.",
	Long: `Load batch files into the record store so later runs can read from it.

Repositories are upserted by id, so ingesting a file again updates categories.
Source records are append-only and keep their observation time, which lets
'run --as-of' reconstruct an earlier state of the batch.

Files ending in .json are read as JSON, anything else as YAML.

Examples:
  # Ingest the nightly exports of two collectors
  reposcout ingest hosts.yaml registries.json

  # Ingest into PostgreSQL (set connection string via env variable)
  REPOSCOUT_RECORDS_BACKEND=postgresql REPOSCOUT_RECORDS_DB_CONNECT="..." reposcout ingest batch.yaml`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteIngest(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot ingest batch", err)
		}
	},
}

// profilesCmd shows the effective weight profiles.
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Show the effective weight profiles per category.",
	Long: `Display the sub-score weights and metric weights of every category profile,
after config file overrides are applied.

Use --category to limit the display and --output to export it.

Examples:
  # Show every profile
  reposcout profiles

  # Export the Rust profile as JSON
  reposcout profiles --category rust-libraries --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteProfiles(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot display profiles", err)
		}
	},
}
