package cmd

import (
	"github.com/huangsam/reposcout/core"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check [batch-file...]",
	Short: "Enforce the threshold policy on a batch (fails on violations)",
	Long: `Run the pipeline and exit with a non-zero code when any repository fails
its category's threshold policy, when a repository cannot be aggregated, or
when the run does not finish within its budget.

Each failure lists the criterion that decided it and the observed value.

Use cases:
- Dependency review - block adding libraries below the quality bar
- Catalog hygiene - flag entries that drifted below policy
- Collector health - catch batches with missing or broken source data

Examples:
  # Gate a dependency proposal
  reposcout check proposal.yaml

  # Gate only the CLI tools in the record store
  reposcout check --category cli-tools`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCheck(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Policy check failed", err)
		}
	},
}
